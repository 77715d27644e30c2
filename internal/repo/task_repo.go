package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/FocusTasks/internal/domain"
)

// TaskRepo — хранилище задач в PostgreSQL.
type TaskRepo struct {
	pool *pgxpool.Pool
}

// NewTaskRepo создаёт новый TaskRepo.
func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

const taskColumns = `id, title, notes, due_at, importance, completed, deleted_at, created_at, updated_at`

// Create создаёт задачу.
func (r *TaskRepo) Create(ctx context.Context, task *domain.Task) error {
	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		task.ID,
		task.Title,
		task.Notes,
		task.DueAt,
		task.Importance,
		task.Completed,
		task.DeletedAt,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetByID возвращает задачу по ID (в том числе удалённую).
func (r *TaskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return scanTask(r.pool.QueryRow(ctx, query, id))
}

// List возвращает задачи по фильтру.
func (r *TaskRepo) List(ctx context.Context, filter ListFilter) ([]domain.Task, error) {
	var (
		where []string
		args  []any
	)

	if filter.Deleted {
		where = append(where, "deleted_at IS NOT NULL")
	} else {
		where = append(where, "deleted_at IS NULL")
	}
	if filter.Completed != nil {
		args = append(args, *filter.Completed)
		where = append(where, fmt.Sprintf("completed = $%d", len(args)))
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY completed ASC, due_at ASC, importance DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return r.query(ctx, query, args...)
}

// ListUpcoming возвращает активные задачи со сроком в (now, now+horizon].
func (r *TaskRepo) ListUpcoming(ctx context.Context, now time.Time, horizon time.Duration) ([]domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE NOT completed AND deleted_at IS NULL
		  AND due_at > $1 AND due_at <= $2
		ORDER BY due_at ASC
	`
	return r.query(ctx, query, now, now.Add(horizon))
}

// Update обновляет редактируемые поля неудалённой задачи.
func (r *TaskRepo) Update(ctx context.Context, task *domain.Task) error {
	query := `
		UPDATE tasks
		SET title = $2, notes = $3, due_at = $4, importance = $5, completed = $6, updated_at = $7
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.pool.Exec(ctx, query,
		task.ID,
		task.Title,
		task.Notes,
		task.DueAt,
		task.Importance,
		task.Completed,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCompleted отмечает задачу выполненной или снимает отметку.
func (r *TaskRepo) SetCompleted(ctx context.Context, id string, completed bool) (*domain.Task, error) {
	query := `
		UPDATE tasks SET completed = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + taskColumns
	return scanTask(r.pool.QueryRow(ctx, query, id, completed))
}

// SoftDelete мягко удаляет задачу.
func (r *TaskRepo) SoftDelete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE tasks SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("soft delete task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return r.missingOrState(ctx, id)
	}
	return nil
}

// Restore отменяет мягкое удаление.
func (r *TaskRepo) Restore(ctx context.Context, id string) (*domain.Task, error) {
	query := `
		UPDATE tasks SET deleted_at = NULL, updated_at = now()
		WHERE id = $1 AND deleted_at IS NOT NULL
		RETURNING ` + taskColumns
	task, err := scanTask(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, ErrNotFound) {
		return nil, r.missingOrState(ctx, id)
	}
	return task, err
}

// missingOrState различает "нет такой задачи" и "не в том состоянии".
func (r *TaskRepo) missingOrState(ctx context.Context, id string) error {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check task: %w", err)
	}
	if exists {
		return ErrInvalidState
	}
	return ErrNotFound
}

// --- Helpers ---

func (r *TaskRepo) query(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
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

// scanTask читает задачу из pgx.Row (pgx.Rows тоже удовлетворяет pgx.Row).
func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task

	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Notes,
		&task.DueAt,
		&task.Importance,
		&task.Completed,
		&task.DeletedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	return &task, nil
}
