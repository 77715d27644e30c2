// Package mq — транспорт протокола напоминаний через RabbitMQ.
//
// Структура:
//   - connection.go — соединение с reconnect и graceful shutdown
//   - topology.go   — exchanges, queues, bindings
//   - publisher.go  — конверт Message и публикация Frame'ов
//   - consumer.go   — потребление с ack/nack и DLQ
//   - bridge.go     — FrameHandler и Bridge (REQUEST_SNAPSHOT для focus-api)
//
// Потоки:
//   - focus-api       → reminders.snapshots → focus-reminderd (SET_REMINDERS)
//   - focus-api       → reminders.actions   → focus-reminderd (NOTIFICATION_ACTION)
//   - focus-reminderd → reminders.requests  → focus-api       (REQUEST_SNAPSHOT)
//
// Exchanges:
//   - focus.reminders — всё выше
//   - focus.dlq       — сообщения, которые не удалось разобрать
package mq
