package repository

import (
	"context"

	"github.com/fastygo/todo/domain"
)

// MutateFunc changes a task inside a store transaction. Returning an error aborts the write.
type MutateFunc func(task *domain.Task) error

// BatchMutateFunc changes one task of a batch. It reports whether the task changed;
// unchanged tasks and tasks rejected with domain.ErrTaskNotFound are skipped.
type BatchMutateFunc func(task *domain.Task) (bool, error)

// TaskRepository is an owner-scoped task store. Every lookup matches owner and id together,
// so a foreign task is indistinguishable from a missing one.
type TaskRepository interface {
	Get(ctx context.Context, ownerID, id string) (*domain.Task, error)
	Query(ctx context.Context, ownerID string, query domain.TaskQuery) (domain.TaskPage, error)
	ListAll(ctx context.Context, ownerID string) ([]domain.Task, error)
	Categories(ctx context.Context, ownerID string) ([]string, error)
	Create(ctx context.Context, task *domain.Task) error
	Mutate(ctx context.Context, ownerID, id string, fn MutateFunc) (*domain.Task, error)
	MutateMany(ctx context.Context, ownerID string, ids []string, fn BatchMutateFunc) ([]domain.Task, error)
	Delete(ctx context.Context, ownerID, id string) (*domain.Task, error)
	DeleteMany(ctx context.Context, ownerID string, ids []string) ([]domain.Task, error)
	// PurgeDeleted removes every soft-deleted task of the owner.
	PurgeDeleted(ctx context.Context, ownerID string) ([]domain.Task, error)
}
