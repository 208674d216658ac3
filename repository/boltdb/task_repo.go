package boltdb

import (
	"context"
	"encoding/json"
	"errors"
	"slices"

	bolt "go.etcd.io/bbolt"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
)

type taskRepository struct {
	store *Store
}

// NewTaskRepository returns a Bolt-backed TaskRepository. Filtering, sorting and paging run
// in-process through domain.TaskQuery.
func NewTaskRepository(store *Store) repository.TaskRepository {
	return &taskRepository{store: store}
}

func (r *taskRepository) Get(ctx context.Context, ownerID, id string) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var task *domain.Task
	err := r.store.db.View(func(tx *bolt.Tx) error {
		var err error
		task, err = getTask(ownerBucket(tx, ownerID), id)
		return err
	})
	return task, err
}

func (r *taskRepository) Query(ctx context.Context, ownerID string, q domain.TaskQuery) (domain.TaskPage, error) {
	tasks, err := r.ListAll(ctx, ownerID)
	if err != nil {
		return domain.TaskPage{}, err
	}
	return q.Apply(tasks), nil
}

func (r *taskRepository) ListAll(ctx context.Context, ownerID string) ([]domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tasks := []domain.Task{}
	err := r.store.db.View(func(tx *bolt.Tx) error {
		bucket := ownerBucket(tx, ownerID)
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(_, v []byte) error {
			var task domain.Task
			if err := json.Unmarshal(v, &task); err != nil {
				return err
			}
			tasks = append(tasks, task)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) Categories(ctx context.Context, ownerID string) ([]string, error) {
	tasks, err := r.ListAll(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	categories := []string{}
	for _, task := range tasks {
		if task.Deleted || task.Category == "" {
			continue
		}
		if _, ok := seen[task.Category]; ok {
			continue
		}
		seen[task.Category] = struct{}{}
		categories = append(categories, task.Category)
	}
	slices.Sort(categories)
	return categories, nil
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	if task == nil || task.ID == "" || task.OwnerID == "" {
		return domain.ErrInvalidPayload
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.store.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.Bucket(bucketTasks).CreateBucketIfNotExists([]byte(task.OwnerID))
		if err != nil {
			return err
		}
		if bucket.Get([]byte(task.ID)) != nil {
			return domain.NewError(domain.ErrCodeConflict, "task already exists")
		}
		return putTask(bucket, task)
	})
}

func (r *taskRepository) Mutate(ctx context.Context, ownerID, id string, fn repository.MutateFunc) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var task *domain.Task
	err := r.store.db.Update(func(tx *bolt.Tx) error {
		bucket := ownerBucket(tx, ownerID)
		current, err := getTask(bucket, id)
		if err != nil {
			return err
		}
		if err := fn(current); err != nil {
			return err
		}
		task = current
		return putTask(bucket, current)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *taskRepository) MutateMany(ctx context.Context, ownerID string, ids []string, fn repository.BatchMutateFunc) ([]domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	changed := []domain.Task{}
	err := r.store.db.Update(func(tx *bolt.Tx) error {
		bucket := ownerBucket(tx, ownerID)
		if bucket == nil {
			return nil
		}
		for _, id := range uniqueIDs(ids) {
			task, err := getTask(bucket, id)
			if errors.Is(err, domain.ErrTaskNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			ok, err := fn(task)
			if errors.Is(err, domain.ErrTaskNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := putTask(bucket, task); err != nil {
				return err
			}
			changed = append(changed, *task)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}

func (r *taskRepository) Delete(ctx context.Context, ownerID, id string) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var task *domain.Task
	err := r.store.db.Update(func(tx *bolt.Tx) error {
		bucket := ownerBucket(tx, ownerID)
		current, err := getTask(bucket, id)
		if err != nil {
			return err
		}
		task = current
		return bucket.Delete([]byte(id))
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *taskRepository) DeleteMany(ctx context.Context, ownerID string, ids []string) ([]domain.Task, error) {
	return r.deleteWhere(ctx, ownerID, func(bucket *bolt.Bucket) ([]domain.Task, error) {
		var matched []domain.Task
		for _, id := range uniqueIDs(ids) {
			task, err := getTask(bucket, id)
			if errors.Is(err, domain.ErrTaskNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			matched = append(matched, *task)
		}
		return matched, nil
	})
}

func (r *taskRepository) PurgeDeleted(ctx context.Context, ownerID string) ([]domain.Task, error) {
	return r.deleteWhere(ctx, ownerID, func(bucket *bolt.Bucket) ([]domain.Task, error) {
		var matched []domain.Task
		err := bucket.ForEach(func(_, v []byte) error {
			var task domain.Task
			if err := json.Unmarshal(v, &task); err != nil {
				return err
			}
			if task.Deleted {
				matched = append(matched, task)
			}
			return nil
		})
		return matched, err
	})
}

// deleteWhere removes the tasks selected by pick. Keys are collected before deleting because
// Bolt forbids mutating a bucket while iterating it.
func (r *taskRepository) deleteWhere(ctx context.Context, ownerID string, pick func(*bolt.Bucket) ([]domain.Task, error)) ([]domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	removed := []domain.Task{}
	err := r.store.db.Update(func(tx *bolt.Tx) error {
		bucket := ownerBucket(tx, ownerID)
		if bucket == nil {
			return nil
		}
		matched, err := pick(bucket)
		if err != nil {
			return err
		}
		for _, task := range matched {
			if err := bucket.Delete([]byte(task.ID)); err != nil {
				return err
			}
		}
		removed = append(removed, matched...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func ownerBucket(tx *bolt.Tx, ownerID string) *bolt.Bucket {
	if ownerID == "" {
		return nil
	}
	return tx.Bucket(bucketTasks).Bucket([]byte(ownerID))
}

func getTask(bucket *bolt.Bucket, id string) (*domain.Task, error) {
	if bucket == nil || id == "" {
		return nil, domain.ErrTaskNotFound
	}
	raw := bucket.Get([]byte(id))
	if raw == nil {
		return nil, domain.ErrTaskNotFound
	}
	var task domain.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func putTask(bucket *bolt.Bucket, task *domain.Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return bucket.Put([]byte(task.ID), payload)
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
