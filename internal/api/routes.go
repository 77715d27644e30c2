package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
// origins — разрешённые CORS origin'ы (пусто — любой).
func (h *Handler) RegisterRoutes(mux *http.ServeMux, origins ...string) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Metrics(),
		Logging(h.logger),
		CORS(origins),
	)

	mux.Handle("GET /api/health", chain(http.HandlerFunc(h.Health)))

	// Preflight для браузерного клиента
	mux.Handle("OPTIONS /api/", chain(http.NotFoundHandler()))

	// Tasks
	mux.Handle("GET /api/v1/tasks", chain(http.HandlerFunc(h.ListTasks)))
	mux.Handle("POST /api/v1/tasks", chain(http.HandlerFunc(h.CreateTask)))
	mux.Handle("GET /api/v1/tasks/{id}", chain(http.HandlerFunc(h.GetTask)))
	mux.Handle("PUT /api/v1/tasks/{id}", chain(http.HandlerFunc(h.UpdateTask)))
	mux.Handle("DELETE /api/v1/tasks/{id}", chain(http.HandlerFunc(h.DeleteTask)))
	mux.Handle("POST /api/v1/tasks/{id}/complete", chain(http.HandlerFunc(h.CompleteTask)))
	mux.Handle("POST /api/v1/tasks/{id}/reopen", chain(http.HandlerFunc(h.ReopenTask)))
	mux.Handle("POST /api/v1/tasks/{id}/restore", chain(http.HandlerFunc(h.RestoreTask)))

	// Reminders
	mux.Handle("POST /api/v1/tasks/{id}/snooze", chain(http.HandlerFunc(h.SnoozeTask)))
	mux.Handle("POST /api/v1/reminders/resync", chain(http.HandlerFunc(h.ResyncReminders)))
}
