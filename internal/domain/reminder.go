package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ReminderKind — причина, по которой запланировано напоминание.
type ReminderKind string

const (
	// ReminderKindDueSoon — однократное предупреждение за threshold до срока.
	ReminderKindDueSoon ReminderKind = "due_soon"

	// ReminderKindHeartbeat — повторное напоминание на границе полудня/полуночи.
	ReminderKindHeartbeat ReminderKind = "heartbeat"

	// ReminderKindSnooze — напоминание, отложенное пользователем.
	ReminderKindSnooze ReminderKind = "snooze"
)

// Title возвращает заголовок уведомления для данного вида напоминания.
func (k ReminderKind) Title() string {
	if k == ReminderKindHeartbeat {
		return "Upcoming task"
	}
	return "Task due soon"
}

// ReminderKey — ключ дедупликации напоминания: пара (taskID, firingTime).
//
// Два напоминания с одинаковым ключом — одно и то же логическое событие.
// Формат: "<taskID>@<unix millis>".
type ReminderKey string

// NewReminderKey строит ключ из ID задачи и времени срабатывания.
// Время округляется до миллисекунд, как в протоколе.
func NewReminderKey(taskID string, fireAt time.Time) ReminderKey {
	return ReminderKey(taskID + "@" + strconv.FormatInt(fireAt.UnixMilli(), 10))
}

// Parse разбирает ключ обратно на ID задачи и время срабатывания.
func (k ReminderKey) Parse() (string, time.Time, error) {
	s := string(k)
	i := strings.LastIndexByte(s, '@')
	if i <= 0 {
		return "", time.Time{}, fmt.Errorf("reminder key %q: missing task id", s)
	}
	ms, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("reminder key %q: %w", s, err)
	}
	return s[:i], time.UnixMilli(ms), nil
}

// TaskID возвращает часть ключа, относящуюся к задаче.
func (k ReminderKey) TaskID() string {
	id, _, err := k.Parse()
	if err != nil {
		return ""
	}
	return id
}

// Tag возвращает тег уведомления — task-scoped часть ключа.
// Более позднее уведомление для той же задачи заменяет предыдущее
// (если платформа это поддерживает).
func (k ReminderKey) Tag() string {
	return NotificationTag(k.TaskID())
}

// NotificationTag возвращает тег уведомления для задачи.
func NotificationTag(taskID string) string {
	return "due-" + taskID
}

// Reminder — запланированное напоминание.
// Живёт только в памяти Scheduler'а и пересобирается на каждом snapshot'е.
type Reminder struct {
	Key    ReminderKey  `json:"key"`
	Kind   ReminderKind `json:"kind"`
	FireAt time.Time    `json:"fire_at"`
	Task   TaskSnapshot `json:"task"`
}

// Notification — запрос на показ уведомления платформой.
type Notification struct {
	Title string           `json:"title"`
	Body  string           `json:"body"`
	Tag   string           `json:"tag"`
	Data  NotificationData `json:"data"`
}

// NotificationData — полезная нагрузка уведомления для маршрутизации действий.
type NotificationData struct {
	TaskID string `json:"taskId"`
	DueAt  int64  `json:"dueAt"`
}

// Permission — состояние разрешения на показ уведомлений.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionDefault Permission = "default"
)

// ParsePermission парсит строку в Permission.
// Неизвестные значения считаются "default" (разрешение ещё не выдано).
func ParsePermission(s string) Permission {
	switch Permission(s) {
	case PermissionGranted:
		return PermissionGranted
	case PermissionDenied:
		return PermissionDenied
	default:
		return PermissionDefault
	}
}

// Action — действие пользователя над уведомлением.
type Action string

const (
	// ActionDefault — клик по телу уведомления.
	ActionDefault Action = ""

	// ActionOpen — кнопка "Open app".
	ActionOpen Action = "open"

	// ActionSnooze — кнопка "Snooze 1 hour".
	ActionSnooze Action = "snooze"
)

// Interaction — действие пользователя вместе с данными уведомления.
type Interaction struct {
	Action Action
	TaskID string
	DueAt  time.Time
}
