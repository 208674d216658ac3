package task

import (
	"context"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/usecase"
)

// Batch operations skip ids that are missing, foreign, or already in the target state,
// and report how many tasks they changed.

// BatchToggle moves the given active tasks to the target completion state.
func (uc *UseCase) BatchToggle(ctx context.Context, ownerID string, ids []string, completed bool) (int, error) {
	kind := domain.ActivityReopened
	if completed {
		kind = domain.ActivityCompleted
	}
	return uc.batchMutate(ctx, ownerID, ids, kind, func(task *domain.Task) (bool, error) {
		return task.SetCompleted(completed, uc.now())
	})
}

func (uc *UseCase) BatchSoftDelete(ctx context.Context, ownerID string, ids []string) (int, error) {
	return uc.batchMutate(ctx, ownerID, ids, domain.ActivityDeleted, func(task *domain.Task) (bool, error) {
		if err := task.SoftDelete(uc.now()); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (uc *UseCase) BatchRestore(ctx context.Context, ownerID string, ids []string) (int, error) {
	return uc.batchMutate(ctx, ownerID, ids, domain.ActivityRestored, func(task *domain.Task) (bool, error) {
		if err := task.Restore(uc.now()); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (uc *UseCase) BatchPermanentDelete(ctx context.Context, ownerID string, ids []string) (int, error) {
	if ownerID == "" {
		return 0, domain.ErrUnauthorized
	}
	if err := validateBatch(ids); err != nil {
		return 0, err
	}
	removed, err := uc.tasks.DeleteMany(ctx, ownerID, ids)
	if err != nil {
		return 0, err
	}
	uc.afterMutation(ctx, ownerID, domain.ActivityPurged, removed...)
	return len(removed), nil
}

// EmptyRecycleBin permanently removes every soft-deleted task of the owner.
func (uc *UseCase) EmptyRecycleBin(ctx context.Context, ownerID string) (int, error) {
	if ownerID == "" {
		return 0, domain.ErrUnauthorized
	}
	removed, err := uc.tasks.PurgeDeleted(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	uc.afterMutation(ctx, ownerID, domain.ActivityPurged, removed...)
	return len(removed), nil
}

func (uc *UseCase) batchMutate(ctx context.Context, ownerID string, ids []string, kind domain.ActivityKind, fn func(*domain.Task) (bool, error)) (int, error) {
	if ownerID == "" {
		return 0, domain.ErrUnauthorized
	}
	if err := validateBatch(ids); err != nil {
		return 0, err
	}
	changed, err := uc.tasks.MutateMany(ctx, ownerID, ids, fn)
	if err != nil {
		return 0, err
	}
	uc.afterMutation(ctx, ownerID, kind, changed...)
	return len(changed), nil
}

// Batch action names accepted by the dispatcher.
const (
	ActionToggle  = "toggle"
	ActionDelete  = "delete"
	ActionRestore = "restore"
	ActionPurge   = "purge"
)

// RegisterBatchCommands exposes the batch operations through a dispatcher.
func (uc *UseCase) RegisterBatchCommands(d *usecase.Dispatcher) {
	d.Register(ActionToggle, func(ctx context.Context, cmd usecase.BatchCommand) (int, error) {
		return uc.BatchToggle(ctx, cmd.OwnerID, cmd.IDs, cmd.Completed)
	})
	d.Register(ActionDelete, func(ctx context.Context, cmd usecase.BatchCommand) (int, error) {
		return uc.BatchSoftDelete(ctx, cmd.OwnerID, cmd.IDs)
	})
	d.Register(ActionRestore, func(ctx context.Context, cmd usecase.BatchCommand) (int, error) {
		return uc.BatchRestore(ctx, cmd.OwnerID, cmd.IDs)
	})
	d.Register(ActionPurge, func(ctx context.Context, cmd usecase.BatchCommand) (int, error) {
		return uc.BatchPermanentDelete(ctx, cmd.OwnerID, cmd.IDs)
	})
}
