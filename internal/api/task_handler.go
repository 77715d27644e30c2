package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/FocusTasks/internal/domain"
	"github.com/shaiso/FocusTasks/internal/repo"
)

const defaultListLimit = 100

// ListTasks возвращает список задач с фильтрацией.
// GET /api/v1/tasks?completed=...&deleted=...&limit=...&offset=...
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repo.ListFilter{Limit: defaultListLimit}

	if v := q.Get("completed"); v != "" {
		completed, err := strconv.ParseBool(v)
		if err != nil {
			BadRequest(w, "invalid completed")
			return
		}
		filter.Completed = &completed
	}

	if v := q.Get("deleted"); v != "" {
		deleted, err := strconv.ParseBool(v)
		if err != nil {
			BadRequest(w, "invalid deleted")
			return
		}
		filter.Deleted = deleted
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			BadRequest(w, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			BadRequest(w, "invalid offset")
			return
		}
		filter.Offset = offset
	}

	tasks, err := h.store.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = TaskFromDomain(t)
	}

	List(w, result, len(result))
}

// CreateTask создаёт новую задачу.
// POST /api/v1/tasks
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		BadRequest(w, "title is required")
		return
	}
	if req.DueAt == nil {
		BadRequest(w, "dueAt is required")
		return
	}
	if req.Importance != 0 && (req.Importance < domain.MinImportance || req.Importance > domain.MaxImportance) {
		BadRequest(w, "importance must be between 1 and 10")
		return
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}

	now := h.now()
	task := &domain.Task{
		ID:         id,
		Title:      title,
		Notes:      req.Notes,
		DueAt:      time.UnixMilli(*req.DueAt),
		Importance: domain.ClampImportance(req.Importance),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.store.Create(r.Context(), task); HandleRepoError(w, h.logger, err, "") {
		return
	}

	h.changed()
	Created(w, TaskFromDomain(*task))
}

// GetTask возвращает задачу по ID.
// GET /api/v1/tasks/{id}
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.store.GetByID(r.Context(), r.PathValue("id"))
	if HandleRepoError(w, h.logger, err, "task not found") {
		return
	}

	Success(w, TaskFromDomain(*task))
}

// UpdateTask обновляет задачу.
// PUT /api/v1/tasks/{id}
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	task, err := h.store.GetByID(r.Context(), r.PathValue("id"))
	if HandleRepoError(w, h.logger, err, "task not found") {
		return
	}
	if task.IsDeleted() {
		NotFound(w, "task not found")
		return
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			BadRequest(w, "title must not be empty")
			return
		}
		task.Title = title
	}
	if req.Notes != nil {
		task.Notes = *req.Notes
	}
	if req.DueAt != nil {
		task.DueAt = time.UnixMilli(*req.DueAt)
	}
	if req.Importance != nil {
		if *req.Importance < domain.MinImportance || *req.Importance > domain.MaxImportance {
			BadRequest(w, "importance must be between 1 and 10")
			return
		}
		task.Importance = *req.Importance
	}
	if req.Completed != nil {
		task.Completed = *req.Completed
	}
	task.UpdatedAt = h.now()

	if err := h.store.Update(r.Context(), task); HandleRepoError(w, h.logger, err, "task not found") {
		return
	}

	h.changed()
	Success(w, TaskFromDomain(*task))
}

// DeleteTask мягко удаляет задачу.
// DELETE /api/v1/tasks/{id}
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.store.SoftDelete(r.Context(), r.PathValue("id")); HandleRepoError(w, h.logger, err, "task not found") {
		return
	}

	h.changed()
	NoContent(w)
}

// CompleteTask отмечает задачу выполненной.
// POST /api/v1/tasks/{id}/complete
func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	h.setCompleted(w, r, true)
}

// ReopenTask снимает отметку о выполнении.
// POST /api/v1/tasks/{id}/reopen
func (h *Handler) ReopenTask(w http.ResponseWriter, r *http.Request) {
	h.setCompleted(w, r, false)
}

func (h *Handler) setCompleted(w http.ResponseWriter, r *http.Request, completed bool) {
	task, err := h.store.SetCompleted(r.Context(), r.PathValue("id"), completed)
	if HandleRepoError(w, h.logger, err, "task not found") {
		return
	}

	h.changed()
	Success(w, TaskFromDomain(*task))
}

// RestoreTask отменяет мягкое удаление (undo).
// POST /api/v1/tasks/{id}/restore
func (h *Handler) RestoreTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.store.Restore(r.Context(), r.PathValue("id"))
	if HandleRepoError(w, h.logger, err, "task not found") {
		return
	}

	h.changed()
	Success(w, TaskFromDomain(*task))
}
