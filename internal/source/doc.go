// Package source реализует Task Source на стороне сервера.
//
// Source читает предстоящие задачи из repo.TaskStore и отправляет их
// планировщику напоминаний полным snapshot'ом SET_REMINDERS через
// RabbitMQ (очередь reminders.snapshots). Snapshot уходит:
//
//   - после каждого изменения задачи (PushAsync из API);
//   - раз в liveness-интервал;
//   - в ответ на REQUEST_SNAPSHOT (очередь reminders.requests).
//
// В snapshot попадают только задачи со сроком в пределах горизонта:
// дальние задачи всё равно не дают напоминаний до следующего tick'а.
package source
