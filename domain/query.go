package domain

import (
	"cmp"
	"slices"
	"strings"
)

// SortField names a sortable task column.
type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByUpdatedAt SortField = "updated_at"
	SortByPriority  SortField = "priority"
	SortByTitle     SortField = "title"
)

// ParseSortField accepts snake or camel case; anything unknown sorts by creation time.
func ParseSortField(value string) SortField {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "_", "") {
	case "updatedat":
		return SortByUpdatedAt
	case "priority":
		return SortByPriority
	case "title":
		return SortByTitle
	default:
		return SortByCreatedAt
	}
}

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// TaskQuery selects one page of an owner's tasks.
type TaskQuery struct {
	IncludeDeleted bool `json:"include_deleted"`
	// OnlyDeleted restricts the result to the recycle bin.
	OnlyDeleted   bool      `json:"only_deleted"`
	IsCompleted   *bool     `json:"is_completed,omitempty"`
	Category      *string   `json:"category,omitempty"`
	Priority      *Priority `json:"priority,omitempty" validate:"omitempty,min=0,max=4"`
	SortBy        SortField `json:"sort_by"`
	SortAscending bool      `json:"sort_asc"`
	Page          int       `json:"page" validate:"min=1"`
	PageSize      int       `json:"page_size" validate:"min=1,max=100"`
}

// DefaultTaskQuery lists active tasks, newest first.
func DefaultTaskQuery() TaskQuery {
	return TaskQuery{
		SortBy:   SortByCreatedAt,
		Page:     DefaultPage,
		PageSize: DefaultPageSize,
	}
}

// Offset is the index of the first row of the requested page.
func (q TaskQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// Matches applies the deletion and equality filters.
func (q TaskQuery) Matches(t *Task) bool {
	switch {
	case q.OnlyDeleted && !t.Deleted:
		return false
	case !q.OnlyDeleted && !q.IncludeDeleted && t.Deleted:
		return false
	}
	if q.IsCompleted != nil && t.IsCompleted() != *q.IsCompleted {
		return false
	}
	if q.Category != nil && t.Category != *q.Category {
		return false
	}
	if q.Priority != nil && t.Priority != *q.Priority {
		return false
	}
	return true
}

// Compare orders two tasks by the requested field and direction, with the id as the final key.
func (q TaskQuery) Compare(a, b *Task) int {
	var c int
	switch ParseSortField(string(q.SortBy)) {
	case SortByUpdatedAt:
		c = a.UpdatedAt.Compare(b.UpdatedAt)
	case SortByPriority:
		c = cmp.Compare(a.Priority, b.Priority)
	case SortByTitle:
		c = strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	default:
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	if c == 0 {
		c = strings.Compare(a.ID, b.ID)
	}
	if !q.SortAscending {
		c = -c
	}
	return c
}

// Apply filters, sorts and slices tasks in memory. The input must already be scoped to one owner.
func (q TaskQuery) Apply(tasks []Task) TaskPage {
	matched := make([]Task, 0, len(tasks))
	for i := range tasks {
		if q.Matches(&tasks[i]) {
			matched = append(matched, tasks[i])
		}
	}
	slices.SortStableFunc(matched, func(a, b Task) int {
		return q.Compare(&a, &b)
	})

	items := []Task{}
	start := q.Offset()
	if start >= 0 && start < len(matched) {
		end := min(start+q.PageSize, len(matched))
		items = matched[start:end]
	}
	return NewTaskPage(items, len(matched), q.Page, q.PageSize)
}

// TaskPage is one page of a filtered listing.
type TaskPage struct {
	Items       []Task `json:"items"`
	TotalCount  int    `json:"total_count"`
	CurrentPage int    `json:"current_page"`
	PageSize    int    `json:"page_size"`
	TotalPages  int    `json:"total_pages"`
}

func NewTaskPage(items []Task, total, page, pageSize int) TaskPage {
	if items == nil {
		items = []Task{}
	}
	pages := 0
	if pageSize > 0 {
		pages = (total + pageSize - 1) / pageSize
	}
	return TaskPage{
		Items:       items,
		TotalCount:  total,
		CurrentPage: page,
		PageSize:    pageSize,
		TotalPages:  pages,
	}
}
