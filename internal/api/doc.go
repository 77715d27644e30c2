// Package api содержит HTTP API сервер задач (Task Source).
//
// Структура:
//   - handler.go          — Handler с DI (хранилище, pusher, publisher, logger)
//   - routes.go           — регистрация маршрутов
//   - middleware.go       — middleware (logging, recovery, metrics, CORS)
//   - response.go         — унифицированные JSON-ответы и обработка ошибок
//   - dto.go              — Data Transfer Objects (request/response)
//   - task_handler.go     — обработчики для /tasks
//   - reminder_handler.go — snooze, resync и /api/health
//
// Каждое изменение задачи отправляет планировщику свежий snapshot
// (Pusher.PushAsync). Ошибка отправки не ломает запрос: изменение уже
// сохранено, следующий liveness tick доставит его.
package api
