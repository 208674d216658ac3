package domain

import "time"

// ActivityKind names a recorded task mutation.
type ActivityKind string

const (
	ActivityCreated   ActivityKind = "task.created"
	ActivityUpdated   ActivityKind = "task.updated"
	ActivityCompleted ActivityKind = "task.completed"
	ActivityReopened  ActivityKind = "task.reopened"
	ActivityDeleted   ActivityKind = "task.deleted"
	ActivityRestored  ActivityKind = "task.restored"
	ActivityPurged    ActivityKind = "task.purged"
)

// Activity is one entry of an owner's activity feed.
type Activity struct {
	ID         string       `json:"id"`
	OwnerID    string       `json:"owner_id"`
	TaskID     string       `json:"task_id"`
	Kind       ActivityKind `json:"kind"`
	Title      string       `json:"title,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}
