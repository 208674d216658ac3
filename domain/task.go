package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Priority ranks a task from Normal (0) to Urgent (4).
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityLow
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

// PriorityLevels is the number of distinct priorities.
const PriorityLevels = 5

var priorityNames = [PriorityLevels]string{"normal", "low", "medium", "high", "urgent"}

func (p Priority) Valid() bool {
	return p >= PriorityNormal && p <= PriorityUrgent
}

func (p Priority) String() string {
	if !p.Valid() {
		return "unknown"
	}
	return priorityNames[p]
}

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
	MaxCategoryLength    = 50
)

// State is the lifecycle position of a task.
type State string

const (
	StatePending   State = "pending"
	StateCompleted State = "completed"
	StateDeleted   State = "deleted"
)

// Task represents a user-owned to-do item.
//
// Completion is carried by CompletedAt alone, so a completed task always has a completion time.
// A deleted task keeps its completion time and gets it back on restore.
type Task struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority"`
	Category    string     `json:"category,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Deleted     bool       `json:"is_deleted"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TaskDraft holds the caller supplied fields of a new task.
type TaskDraft struct {
	Title       string
	Description string
	Priority    Priority
	Category    string
}

// TaskPatch is a partial update; nil fields are left untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *Priority
	Category    *string
	IsCompleted *bool
}

// Empty reports whether the patch carries no field at all.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && p.Category == nil && p.IsCompleted == nil
}

// NewTask creates a pending task for the owner.
func NewTask(ownerID string, draft TaskDraft, now time.Time) *Task {
	now = now.UTC()
	return &Task{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(draft.Title),
		Description: NormalizeText(draft.Description),
		Priority:    draft.Priority,
		Category:    NormalizeText(draft.Category),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NormalizeText trims optional text; blank input means "not set".
func NormalizeText(value string) string {
	return strings.TrimSpace(value)
}

func (t *Task) IsCompleted() bool {
	return t != nil && t.CompletedAt != nil
}

func (t *Task) State() State {
	switch {
	case t.Deleted:
		return StateDeleted
	case t.CompletedAt != nil:
		return StateCompleted
	default:
		return StatePending
	}
}

// Touch bumps UpdatedAt, keeping it monotonic for the record.
func (t *Task) Touch(now time.Time) {
	now = now.UTC()
	if !now.After(t.UpdatedAt) {
		now = t.UpdatedAt.Add(time.Microsecond)
	}
	t.UpdatedAt = now
}

// Wrong-state transitions return ErrTaskNotFound; callers cannot tell them apart from a missing task.

// SetCompleted moves an active task to the target completion state.
// It reports whether anything changed; an unchanged task is not touched.
func (t *Task) SetCompleted(completed bool, now time.Time) (bool, error) {
	if t.Deleted {
		return false, ErrTaskNotFound
	}
	if t.IsCompleted() == completed {
		return false, nil
	}
	if completed {
		at := now.UTC()
		t.CompletedAt = &at
	} else {
		t.CompletedAt = nil
	}
	t.Touch(now)
	return true, nil
}

// Toggle flips completion of an active task.
func (t *Task) Toggle(now time.Time) error {
	_, err := t.SetCompleted(!t.IsCompleted(), now)
	return err
}

// SoftDelete moves an active task to the recycle bin.
func (t *Task) SoftDelete(now time.Time) error {
	if t.Deleted {
		return ErrTaskNotFound
	}
	t.Deleted = true
	t.Touch(now)
	return nil
}

// Restore brings a task back from the recycle bin with its completion state intact.
func (t *Task) Restore(now time.Time) error {
	if !t.Deleted {
		return ErrTaskNotFound
	}
	t.Deleted = false
	t.Touch(now)
	return nil
}

// Apply writes the present fields of the patch. The patch must already be validated.
func (t *Task) Apply(patch TaskPatch, now time.Time) error {
	if t.Deleted {
		return ErrTaskNotFound
	}
	if patch.Title != nil {
		t.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		t.Description = NormalizeText(*patch.Description)
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.Category != nil {
		t.Category = NormalizeText(*patch.Category)
	}
	touched := false
	if patch.IsCompleted != nil {
		changed, err := t.SetCompleted(*patch.IsCompleted, now)
		if err != nil {
			return err
		}
		touched = changed
	}
	if !touched {
		t.Touch(now)
	}
	return nil
}

// MarshalJSON adds the derived completion flag and lifecycle state.
func (t Task) MarshalJSON() ([]byte, error) {
	type plain Task
	return json.Marshal(struct {
		plain
		IsCompleted bool  `json:"is_completed"`
		State       State `json:"state"`
	}{
		plain:       plain(t),
		IsCompleted: t.IsCompleted(),
		State:       t.State(),
	})
}
