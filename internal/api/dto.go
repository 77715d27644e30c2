package api

import (
	"time"

	"github.com/shaiso/FocusTasks/internal/domain"
)

// Task DTOs
//
// Сроки в API — миллисекунды Unix, как в протоколе напоминаний и
// у браузерного клиента.

// CreateTaskRequest — запрос на создание задачи.
type CreateTaskRequest struct {
	// ID — опционально: клиент может прислать свой идентификатор.
	ID         string `json:"id,omitempty"`
	Title      string `json:"title"`
	Notes      string `json:"notes,omitempty"`
	DueAt      *int64 `json:"dueAt"`
	Importance int    `json:"importance,omitempty"`
}

// UpdateTaskRequest — запрос на обновление задачи.
type UpdateTaskRequest struct {
	Title      *string `json:"title,omitempty"`
	Notes      *string `json:"notes,omitempty"`
	DueAt      *int64  `json:"dueAt,omitempty"`
	Importance *int    `json:"importance,omitempty"`
	Completed  *bool   `json:"completed,omitempty"`
}

// TaskResponse — ответ с задачей.
type TaskResponse struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Notes      string     `json:"notes,omitempty"`
	DueAt      int64      `json:"dueAt"`
	Importance int        `json:"importance"`
	Completed  bool       `json:"completed"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TaskFromDomain конвертирует domain.Task в TaskResponse.
func TaskFromDomain(t domain.Task) TaskResponse {
	return TaskResponse{
		ID:         t.ID,
		Title:      t.Title,
		Notes:      t.Notes,
		DueAt:      t.DueAt.UnixMilli(),
		Importance: t.Importance,
		Completed:  t.Completed,
		DeletedAt:  t.DeletedAt,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

// Reminder DTOs

// SnoozeRequest — запрос на откладывание напоминания.
// DueAt — срок из уведомления; по умолчанию текущий срок задачи.
type SnoozeRequest struct {
	DueAt *int64 `json:"dueAt,omitempty"`
}

// ResyncResponse — результат принудительной отправки snapshot'а.
type ResyncResponse struct {
	Tasks int `json:"tasks"`
}

// HealthResponse — ответ /api/health.
type HealthResponse struct {
	OK bool `json:"ok"`
}
