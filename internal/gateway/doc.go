// Package gateway — WebSocket шлюз между focus-reminderd и окнами клиента.
//
// Окно подключается к /ws, присылает HELLO с состоянием разрешения на
// уведомления и дальше шлёт SET_REMINDERS / TASKS_SNAPSHOT /
// NOTIFICATION_ACTION. В обратную сторону идут NOTIFY, REQUEST_SNAPSHOT
// и FOCUS.
package gateway
