package task

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/pkg/logger"
	"github.com/fastygo/todo/repository"
	"github.com/fastygo/todo/usecase"
)

const (
	defaultStatsTTL         = time.Minute
	defaultStatsLoadTimeout = 10 * time.Second
)

type UseCase struct {
	tasks    repository.TaskRepository
	activity usecase.ActivityRecorder
	logger   *zap.Logger

	cache    repository.StatisticsCache
	cacheTTL    time.Duration
	flight      singleflight.Group
	loadTimeout time.Duration

	now func() time.Time
}

type Option func(*UseCase)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		if now != nil {
			uc.now = now
		}
	}
}

// WithStatisticsCache enables cache-aside statistics with the given TTL.
func WithStatisticsCache(cache repository.StatisticsCache, ttl time.Duration) Option {
	return func(uc *UseCase) {
		uc.cache = cache
		if ttl > 0 {
			uc.cacheTTL = ttl
		}
	}
}

// WithLoadTimeout bounds a shared statistics load, which runs detached from the caller's context.
func WithLoadTimeout(d time.Duration) Option {
	return func(uc *UseCase) {
		if d > 0 {
			uc.loadTimeout = d
		}
	}
}

func New(tasks repository.TaskRepository, activity usecase.ActivityRecorder, logger *zap.Logger, opts ...Option) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	uc := &UseCase{
		tasks:       tasks,
		activity:    activity,
		logger:      logger,
		cacheTTL:    defaultStatsTTL,
		loadTimeout: defaultStatsLoadTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *UseCase) ListTasks(ctx context.Context, ownerID string, query domain.TaskQuery) (domain.TaskPage, error) {
	if ownerID == "" {
		return domain.TaskPage{}, domain.ErrUnauthorized
	}
	query, err := normalizeQuery(query)
	if err != nil {
		return domain.TaskPage{}, err
	}
	return uc.tasks.Query(ctx, ownerID, query)
}

// ListRecycleBin pages through the owner's soft-deleted tasks.
func (uc *UseCase) ListRecycleBin(ctx context.Context, ownerID string, query domain.TaskQuery) (domain.TaskPage, error) {
	query.OnlyDeleted = true
	return uc.ListTasks(ctx, ownerID, query)
}

func (uc *UseCase) ListCategories(ctx context.Context, ownerID string) ([]string, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	return uc.tasks.Categories(ctx, ownerID)
}

// GetTask returns an active task. Deleted tasks are only reachable through the recycle bin.
func (uc *UseCase) GetTask(ctx context.Context, ownerID, id string) (*domain.Task, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	task, err := uc.tasks.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if task.Deleted {
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

func (uc *UseCase) CreateTask(ctx context.Context, ownerID string, draft domain.TaskDraft) (*domain.Task, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	task := domain.NewTask(ownerID, draft, uc.now())
	if err := uc.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	uc.afterMutation(ctx, ownerID, domain.ActivityCreated, *task)
	return task, nil
}

func (uc *UseCase) UpdateTask(ctx context.Context, ownerID, id string, patch domain.TaskPatch) (*domain.Task, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	kind := domain.ActivityUpdated
	updated, err := uc.tasks.Mutate(ctx, ownerID, id, func(task *domain.Task) error {
		wasCompleted := task.IsCompleted()
		if err := task.Apply(patch, uc.now()); err != nil {
			return err
		}
		if task.IsCompleted() != wasCompleted {
			kind = completionKind(task)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.afterMutation(ctx, ownerID, kind, *updated)
	return updated, nil
}

// ToggleCompletion flips an active task between pending and completed.
// It reports false when the task is missing, foreign or deleted.
func (uc *UseCase) ToggleCompletion(ctx context.Context, ownerID, id string) (bool, error) {
	return uc.transition(ctx, ownerID, id, func(task *domain.Task) (domain.ActivityKind, error) {
		if err := task.Toggle(uc.now()); err != nil {
			return "", err
		}
		return completionKind(task), nil
	})
}

func (uc *UseCase) SoftDeleteTask(ctx context.Context, ownerID, id string) (bool, error) {
	return uc.transition(ctx, ownerID, id, func(task *domain.Task) (domain.ActivityKind, error) {
		return domain.ActivityDeleted, task.SoftDelete(uc.now())
	})
}

func (uc *UseCase) RestoreTask(ctx context.Context, ownerID, id string) (bool, error) {
	return uc.transition(ctx, ownerID, id, func(task *domain.Task) (domain.ActivityKind, error) {
		return domain.ActivityRestored, task.Restore(uc.now())
	})
}

// PermanentDeleteTask removes the task whatever its state.
func (uc *UseCase) PermanentDeleteTask(ctx context.Context, ownerID, id string) (bool, error) {
	if ownerID == "" {
		return false, domain.ErrUnauthorized
	}
	removed, err := uc.tasks.Delete(ctx, ownerID, id)
	if errors.Is(err, domain.ErrTaskNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	uc.afterMutation(ctx, ownerID, domain.ActivityPurged, *removed)
	return true, nil
}

func (uc *UseCase) transition(ctx context.Context, ownerID, id string, apply func(*domain.Task) (domain.ActivityKind, error)) (bool, error) {
	if ownerID == "" {
		return false, domain.ErrUnauthorized
	}
	var kind domain.ActivityKind
	updated, err := uc.tasks.Mutate(ctx, ownerID, id, func(task *domain.Task) error {
		var err error
		kind, err = apply(task)
		return err
	})
	if errors.Is(err, domain.ErrTaskNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	uc.afterMutation(ctx, ownerID, kind, *updated)
	return true, nil
}

// afterMutation drops the cached statistics and records activity. Neither step can fail the
// mutation that already committed.
func (uc *UseCase) afterMutation(ctx context.Context, ownerID string, kind domain.ActivityKind, tasks ...domain.Task) {
	if len(tasks) == 0 {
		return
	}
	log := logger.WithRequestID(ctx, uc.logger)

	if uc.cache != nil {
		if err := uc.cache.Invalidate(ctx, ownerID); err != nil {
			log.Warn("statistics cache invalidation failed", zap.String("owner_id", ownerID), zap.Error(err))
		}
	}
	uc.flight.Forget(ownerID)

	if uc.activity == nil {
		return
	}
	at := uc.now().UTC()
	for _, task := range tasks {
		activity := domain.Activity{
			OwnerID:    ownerID,
			TaskID:     task.ID,
			Kind:       kind,
			Title:      task.Title,
			OccurredAt: at,
		}
		if err := uc.activity.Record(ctx, activity); err != nil {
			log.Error("failed to record task activity",
				zap.String("task_id", task.ID),
				zap.String("kind", string(kind)),
				zap.Error(err))
		}
	}
}

func completionKind(task *domain.Task) domain.ActivityKind {
	if task.IsCompleted() {
		return domain.ActivityCompleted
	}
	return domain.ActivityReopened
}
