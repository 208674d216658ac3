package transport

import "github.com/fastygo/todo/domain"

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type ProfileUpdateRequest struct {
	Name string `json:"name"`
}

type TaskCreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
	Category    string `json:"category"`
}

func (r TaskCreateRequest) Draft() domain.TaskDraft {
	return domain.TaskDraft{
		Title:       r.Title,
		Description: r.Description,
		Priority:    domain.Priority(r.Priority),
		Category:    r.Category,
	}
}

// TaskUpdateRequest is a partial update; omitted fields stay unchanged.
type TaskUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *int    `json:"priority"`
	Category    *string `json:"category"`
	IsCompleted *bool   `json:"is_completed"`
}

func (r TaskUpdateRequest) Patch() domain.TaskPatch {
	patch := domain.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		IsCompleted: r.IsCompleted,
	}
	if r.Priority != nil {
		p := domain.Priority(*r.Priority)
		patch.Priority = &p
	}
	return patch
}

// BatchRequest drives POST /api/v1/tasks/batch. Completed is only read by the toggle action.
type BatchRequest struct {
	Action    string   `json:"action"`
	IDs       []string `json:"ids"`
	Completed bool     `json:"completed"`
}
