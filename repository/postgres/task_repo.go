package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
)

const taskColumns = `id, user_id, title, description, priority, category, is_completed, completed_at, is_deleted, created_at, updated_at`

// Filters shared by the count and page queries. $1 owner, $2 include deleted, $3 only deleted,
// $4 completion, $5 category, $6 priority.
const taskFilter = `
	WHERE user_id = $1
	  AND ($2::boolean OR is_deleted = FALSE)
	  AND (NOT $3::boolean OR is_deleted = TRUE)
	  AND ($4::boolean IS NULL OR is_completed = $4)
	  AND ($5::text IS NULL OR category = $5)
	  AND ($6::smallint IS NULL OR priority = $6)
`

var sortColumns = map[domain.SortField]string{
	domain.SortByCreatedAt: "created_at",
	domain.SortByUpdatedAt: "updated_at",
	domain.SortByPriority:  "priority",
	domain.SortByTitle:     "LOWER(title)",
}

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) Get(ctx context.Context, ownerID, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND user_id = $2`
	return scanTask(r.pool.QueryRow(ctx, query, id, ownerID))
}

func (r *taskRepository) Query(ctx context.Context, ownerID string, q domain.TaskQuery) (domain.TaskPage, error) {
	args := filterArgs(ownerID, q)
	order := orderClause(q)

	var page domain.TaskPage
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		var total int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM tasks`+taskFilter, args...).Scan(&total); err != nil {
			return err
		}

		pageQuery := `SELECT ` + taskColumns + ` FROM tasks` + taskFilter +
			` ORDER BY ` + order + ` LIMIT $7 OFFSET $8`
		rows, err := tx.Query(ctx, pageQuery, append(args, q.PageSize, q.Offset())...)
		if err != nil {
			return err
		}
		items, err := collectTasks(rows)
		if err != nil {
			return err
		}
		page = domain.NewTaskPage(items, total, q.Page, q.PageSize)
		return nil
	})
	if err != nil {
		return domain.TaskPage{}, fmt.Errorf("query tasks: %w", err)
	}
	return page, nil
}

// filterArgs binds the query to the placeholders of taskFilter.
func filterArgs(ownerID string, q domain.TaskQuery) []interface{} {
	return []interface{}{
		ownerID,
		q.IncludeDeleted || q.OnlyDeleted,
		q.OnlyDeleted,
		q.IsCompleted,
		q.Category,
		nullPriority(q.Priority),
	}
}

// orderClause sorts by the requested column and breaks ties by id in the same direction.
func orderClause(q domain.TaskQuery) string {
	direction := "DESC"
	if q.SortAscending {
		direction = "ASC"
	}
	return fmt.Sprintf("%s %s, id %s", sortColumns[domain.ParseSortField(string(q.SortBy))], direction, direction)
}

func (r *taskRepository) ListAll(ctx context.Context, ownerID string) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func (r *taskRepository) Categories(ctx context.Context, ownerID string) ([]string, error) {
	const query = `
	SELECT DISTINCT category
	FROM tasks
	WHERE user_id = $1 AND is_deleted = FALSE AND category IS NOT NULL AND category <> ''
	ORDER BY category
	`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	categories, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	if task == nil || task.ID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO tasks (` + taskColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		task.ID,
		task.OwnerID,
		task.Title,
		nullString(task.Description),
		int16(task.Priority),
		nullString(task.Category),
		task.IsCompleted(),
		nullTime(task.CompletedAt),
		task.Deleted,
		task.CreatedAt.UTC(),
		task.UpdatedAt.UTC(),
	)
	return err
}

func (r *taskRepository) Mutate(ctx context.Context, ownerID, id string, fn repository.MutateFunc) (*domain.Task, error) {
	var out *domain.Task
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND user_id = $2 FOR UPDATE`
		task, err := scanTask(tx.QueryRow(ctx, query, id, ownerID))
		if err != nil {
			return err
		}
		if err := fn(task); err != nil {
			return err
		}
		if err := writeTask(ctx, tx, task); err != nil {
			return err
		}
		out = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *taskRepository) MutateMany(ctx context.Context, ownerID string, ids []string, fn repository.BatchMutateFunc) ([]domain.Task, error) {
	if len(ids) == 0 {
		return []domain.Task{}, nil
	}

	changed := []domain.Task{}
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 AND id = ANY($2) ORDER BY id FOR UPDATE`
		rows, err := tx.Query(ctx, query, ownerID, ids)
		if err != nil {
			return err
		}
		tasks, err := collectTasks(rows)
		if err != nil {
			return err
		}

		for i := range tasks {
			ok, err := fn(&tasks[i])
			if errors.Is(err, domain.ErrTaskNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := writeTask(ctx, tx, &tasks[i]); err != nil {
				return err
			}
			changed = append(changed, tasks[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}

func (r *taskRepository) Delete(ctx context.Context, ownerID, id string) (*domain.Task, error) {
	query := `DELETE FROM tasks WHERE id = $1 AND user_id = $2 RETURNING ` + taskColumns
	return scanTask(r.pool.QueryRow(ctx, query, id, ownerID))
}

func (r *taskRepository) DeleteMany(ctx context.Context, ownerID string, ids []string) ([]domain.Task, error) {
	if len(ids) == 0 {
		return []domain.Task{}, nil
	}
	query := `DELETE FROM tasks WHERE user_id = $1 AND id = ANY($2) RETURNING ` + taskColumns
	rows, err := r.pool.Query(ctx, query, ownerID, ids)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func (r *taskRepository) PurgeDeleted(ctx context.Context, ownerID string) ([]domain.Task, error) {
	query := `DELETE FROM tasks WHERE user_id = $1 AND is_deleted = TRUE RETURNING ` + taskColumns
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func writeTask(ctx context.Context, tx pgx.Tx, task *domain.Task) error {
	const query = `
	UPDATE tasks
	SET title = $3,
		description = $4,
		priority = $5,
		category = $6,
		is_completed = $7,
		completed_at = $8,
		is_deleted = $9,
		updated_at = $10
	WHERE id = $1 AND user_id = $2
	`
	tag, err := tx.Exec(ctx, query,
		task.ID,
		task.OwnerID,
		task.Title,
		nullString(task.Description),
		int16(task.Priority),
		nullString(task.Category),
		task.IsCompleted(),
		nullTime(task.CompletedAt),
		task.Deleted,
		task.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func collectTasks(rows pgx.Rows) ([]domain.Task, error) {
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var (
		description *string
		category    *string
		priority    int16
		completed   bool
		completedAt *time.Time
	)

	if err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&description,
		&priority,
		&category,
		&completed,
		&completedAt,
		&task.Deleted,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.Description = derefString(description)
	task.Category = derefString(category)
	task.Priority = domain.Priority(priority)
	if completed && completedAt != nil {
		at := completedAt.UTC()
		task.CompletedAt = &at
	}
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()

	return &task, nil
}
