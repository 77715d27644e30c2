package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/shaiso/FocusTasks/internal/domain"
	"github.com/spf13/afero"
)

// fileData — формат файла хранилища.
type fileData struct {
	Tasks []domain.Task `json:"tasks"`
}

// FileRepo — хранилище задач в одном JSON-файле.
//
// Подходит для одного процесса focus-api без PostgreSQL. Каждая запись
// перечитывает файл, меняет его и атомарно заменяет через rename.
type FileRepo struct {
	fs   afero.Fs
	path string
	now  func() time.Time

	mu sync.Mutex
}

// NewFileRepo создаёт FileRepo поверх fs.
func NewFileRepo(fsys afero.Fs, path string) *FileRepo {
	return &FileRepo{fs: fsys, path: path, now: time.Now}
}

func (r *FileRepo) load() (*fileData, error) {
	raw, err := afero.ReadFile(r.fs, r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &fileData{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}

	var data fileData
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("decode %s: %w", r.path, err)
		}
	}
	return &data, nil
}

func (r *FileRepo) save(data *fileData) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}

	if dir := filepath.Dir(r.path); dir != "." {
		if err := r.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	tmp := r.path + ".tmp"
	if err := afero.WriteFile(r.fs, tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := r.fs.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace %s: %w", r.path, err)
	}
	return nil
}

// mutate загружает данные, применяет fn и сохраняет, если fn не вернул ошибку.
func (r *FileRepo) mutate(fn func(data *fileData) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.load()
	if err != nil {
		return err
	}
	if err := fn(data); err != nil {
		return err
	}
	return r.save(data)
}

func (d *fileData) find(id string) *domain.Task {
	for i := range d.Tasks {
		if d.Tasks[i].ID == id {
			return &d.Tasks[i]
		}
	}
	return nil
}

// Create создаёт задачу.
func (r *FileRepo) Create(_ context.Context, task *domain.Task) error {
	return r.mutate(func(data *fileData) error {
		if data.find(task.ID) != nil {
			return ErrAlreadyExists
		}
		data.Tasks = append(data.Tasks, *task)
		return nil
	})
}

// GetByID возвращает задачу по ID (в том числе удалённую).
func (r *FileRepo) GetByID(_ context.Context, id string) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.load()
	if err != nil {
		return nil, err
	}
	task := data.find(id)
	if task == nil {
		return nil, ErrNotFound
	}
	out := *task
	return &out, nil
}

// List возвращает задачи по фильтру в порядке SortTasks.
func (r *FileRepo) List(_ context.Context, filter ListFilter) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.load()
	if err != nil {
		return nil, err
	}

	tasks := []domain.Task{}
	for i := range data.Tasks {
		if filter.match(&data.Tasks[i]) {
			tasks = append(tasks, data.Tasks[i])
		}
	}
	SortTasks(tasks)
	return filter.paginate(tasks), nil
}

// ListUpcoming возвращает активные задачи со сроком в (now, now+horizon].
func (r *FileRepo) ListUpcoming(_ context.Context, now time.Time, horizon time.Duration) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.load()
	if err != nil {
		return nil, err
	}

	tasks := []domain.Task{}
	for i := range data.Tasks {
		if data.Tasks[i].IsUpcoming(now, horizon) {
			tasks = append(tasks, data.Tasks[i])
		}
	}
	SortTasks(tasks)
	return tasks, nil
}

// Update обновляет редактируемые поля неудалённой задачи.
func (r *FileRepo) Update(_ context.Context, task *domain.Task) error {
	return r.mutate(func(data *fileData) error {
		existing := data.find(task.ID)
		if existing == nil || existing.IsDeleted() {
			return ErrNotFound
		}
		existing.Title = task.Title
		existing.Notes = task.Notes
		existing.DueAt = task.DueAt
		existing.Importance = task.Importance
		existing.Completed = task.Completed
		existing.UpdatedAt = task.UpdatedAt
		return nil
	})
}

// SetCompleted отмечает задачу выполненной или снимает отметку.
func (r *FileRepo) SetCompleted(_ context.Context, id string, completed bool) (*domain.Task, error) {
	var out domain.Task
	err := r.mutate(func(data *fileData) error {
		task := data.find(id)
		if task == nil || task.IsDeleted() {
			return ErrNotFound
		}
		task.Completed = completed
		task.UpdatedAt = r.now()
		out = *task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SoftDelete мягко удаляет задачу.
func (r *FileRepo) SoftDelete(_ context.Context, id string) error {
	return r.mutate(func(data *fileData) error {
		task := data.find(id)
		if task == nil {
			return ErrNotFound
		}
		if task.IsDeleted() {
			return ErrInvalidState
		}
		now := r.now()
		task.DeletedAt = &now
		task.UpdatedAt = now
		return nil
	})
}

// Restore отменяет мягкое удаление.
func (r *FileRepo) Restore(_ context.Context, id string) (*domain.Task, error) {
	var out domain.Task
	err := r.mutate(func(data *fileData) error {
		task := data.find(id)
		if task == nil {
			return ErrNotFound
		}
		if !task.IsDeleted() {
			return ErrInvalidState
		}
		task.DeletedAt = nil
		task.UpdatedAt = r.now()
		out = *task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
