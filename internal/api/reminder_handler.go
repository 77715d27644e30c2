package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/shaiso/FocusTasks/internal/domain"
	"github.com/shaiso/FocusTasks/internal/protocol"
	"github.com/shaiso/FocusTasks/internal/reminder"
	"github.com/shaiso/FocusTasks/internal/telemetry"
)

// Health — проверка живости для клиентов.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, HealthResponse{OK: true})
}

// ResyncReminders немедленно отправляет планировщику полный snapshot.
// POST /api/v1/reminders/resync
func (h *Handler) ResyncReminders(w http.ResponseWriter, r *http.Request) {
	if h.pusher == nil {
		Error(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "reminder scheduler is not connected")
		return
	}

	n, err := h.pusher.Push(r.Context(), reminder.TriggerPush)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, ResyncResponse{Tasks: n})
}

// SnoozeTask откладывает напоминание по задаче на SnoozeDuration.
// Действие уходит планировщику тем же путём, что и нажатие на уведомление.
// POST /api/v1/tasks/{id}/snooze
func (h *Handler) SnoozeTask(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		Error(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "reminder scheduler is not connected")
		return
	}

	var req SnoozeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(w, "invalid request body")
		return
	}

	task, err := h.store.GetByID(r.Context(), r.PathValue("id"))
	if HandleRepoError(w, h.logger, err, "task not found") {
		return
	}
	if !task.IsActive() {
		InvalidState(w, "task is completed or deleted")
		return
	}

	dueAt := task.DueAt.UnixMilli()
	if req.DueAt != nil {
		dueAt = *req.DueAt
	}

	data := protocol.ActionData{TaskID: task.ID, DueAt: dueAt}
	if err := h.publisher.PublishAction(r.Context(), string(domain.ActionSnooze), data); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	telemetry.WithTaskID(telemetry.FromContext(r.Context()), task.ID).Info("snooze requested", "due_at", dueAt)
	JSON(w, http.StatusAccepted, DataResponse{Data: data})
}
