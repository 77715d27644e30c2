package repo

import (
	"context"
	"sort"
	"time"

	"github.com/shaiso/FocusTasks/internal/domain"
)

// TaskStore — хранилище задач. Реализации: TaskRepo (PostgreSQL) и
// FileRepo (JSON-файл).
type TaskStore interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	SetCompleted(ctx context.Context, id string, completed bool) (*domain.Task, error)
	SoftDelete(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) (*domain.Task, error)

	// ListUpcoming возвращает активные задачи со сроком в (now, now+horizon].
	ListUpcoming(ctx context.Context, now time.Time, horizon time.Duration) ([]domain.Task, error)
}

// ListFilter — параметры выборки задач.
type ListFilter struct {
	// Completed — nil: все, иначе только с этим значением.
	Completed *bool

	// Deleted — false: только неудалённые, true: только удалённые.
	Deleted bool

	Limit  int
	Offset int
}

// match проверяет задачу против фильтра (без пагинации).
func (f ListFilter) match(t *domain.Task) bool {
	if t.IsDeleted() != f.Deleted {
		return false
	}
	if f.Completed != nil && t.Completed != *f.Completed {
		return false
	}
	return true
}

// paginate применяет Offset/Limit к отсортированному списку.
func (f ListFilter) paginate(tasks []domain.Task) []domain.Task {
	if f.Offset > 0 {
		if f.Offset >= len(tasks) {
			return []domain.Task{}
		}
		tasks = tasks[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(tasks) {
		tasks = tasks[:f.Limit]
	}
	return tasks
}

// SortTasks упорядочивает задачи: невыполненные первыми, затем по сроку,
// затем по убыванию важности.
func SortTasks(tasks []domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := &tasks[i], &tasks[j]
		if a.Completed != b.Completed {
			return !a.Completed
		}
		if !a.DueAt.Equal(b.DueAt) {
			return a.DueAt.Before(b.DueAt)
		}
		return a.Importance > b.Importance
	})
}

var (
	_ TaskStore = (*TaskRepo)(nil)
	_ TaskStore = (*FileRepo)(nil)
)
