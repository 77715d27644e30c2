package domain

import (
	"time"
)

// Важность задачи по умолчанию и допустимый диапазон.
const (
	DefaultImportance = 5
	MinImportance     = 1
	MaxImportance     = 10
)

// Task — задача пользователя.
//
// Task принадлежит Task Source (API + хранилище). Scheduler напоминаний
// только читает ID, Title, DueAt и Completed из присланного snapshot'а
// и никогда не изменяет задачу.
type Task struct {
	// ID — непрозрачный уникальный идентификатор, стабилен между правками.
	ID string `json:"id"`

	// Title — отображаемый текст задачи.
	Title string `json:"title"`

	// Notes — заметки к задаче.
	Notes string `json:"notes,omitempty"`

	// DueAt — срок выполнения.
	DueAt time.Time `json:"due_at"`

	// Importance — важность от 1 до 10.
	Importance int `json:"importance"`

	// Completed — задача выполнена.
	Completed bool `json:"completed"`

	// DeletedAt — время мягкого удаления (nil — задача не удалена).
	// Удалённую задачу можно восстановить (undo).
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsDeleted возвращает true, если задача мягко удалена.
func (t *Task) IsDeleted() bool {
	return t.DeletedAt != nil
}

// IsActive возвращает true для невыполненной и неудалённой задачи.
func (t *Task) IsActive() bool {
	return !t.Completed && !t.IsDeleted()
}

// IsUpcoming проверяет, что задача активна и её срок попадает
// в окно (now, now+horizon].
func (t *Task) IsUpcoming(now time.Time, horizon time.Duration) bool {
	if !t.IsActive() {
		return false
	}
	if !t.DueAt.After(now) {
		return false
	}
	return !t.DueAt.After(now.Add(horizon))
}

// MarkCompleted помечает задачу выполненной.
func (t *Task) MarkCompleted() {
	t.Completed = true
	t.UpdatedAt = time.Now()
}

// Reopen снимает отметку о выполнении.
func (t *Task) Reopen() {
	t.Completed = false
	t.UpdatedAt = time.Now()
}

// SoftDelete мягко удаляет задачу.
func (t *Task) SoftDelete() {
	now := time.Now()
	t.DeletedAt = &now
	t.UpdatedAt = now
}

// Restore отменяет мягкое удаление.
func (t *Task) Restore() {
	t.DeletedAt = nil
	t.UpdatedAt = time.Now()
}

// Snapshot возвращает замороженную копию полей, нужных для уведомления.
func (t *Task) Snapshot() TaskSnapshot {
	return TaskSnapshot{
		ID:    t.ID,
		Title: t.Title,
		DueAt: t.DueAt,
	}
}

// TaskSnapshot — копия полей задачи на момент планирования напоминания.
// Не ссылается на исходную Task: та может измениться или быть удалена
// до срабатывания таймера.
type TaskSnapshot struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	DueAt time.Time `json:"due_at"`
}

// ClampImportance приводит важность к допустимому диапазону.
// Ноль означает "не задано" и заменяется значением по умолчанию.
func ClampImportance(v int) int {
	switch {
	case v == 0:
		return DefaultImportance
	case v < MinImportance:
		return MinImportance
	case v > MaxImportance:
		return MaxImportance
	default:
		return v
	}
}
