// Package protocol описывает сообщения между Task Source и Scheduler'ом
// напоминаний.
//
// Один и тот же Frame ходит по WebSocket (браузерный клиент) и внутри
// mq.Message (focus-api ↔ focus-reminderd). Форма совпадает с сообщениями
// клиента: {type, tasks}, {type, action, data}.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/shaiso/FocusTasks/internal/domain"
)

// MessageType — тип сообщения протокола.
type MessageType string

const (
	// TypeSetReminders — полный snapshot активных задач (Task Source → Scheduler).
	TypeSetReminders MessageType = "SET_REMINDERS"

	// TypeTasksSnapshot — ответ клиента на REQUEST_SNAPSHOT, та же семантика.
	TypeTasksSnapshot MessageType = "TASKS_SNAPSHOT"

	// TypeRequestSnapshot — Scheduler просит свежий snapshot.
	TypeRequestSnapshot MessageType = "REQUEST_SNAPSHOT"

	// TypeNotificationAction — пользователь нажал на уведомление.
	TypeNotificationAction MessageType = "NOTIFICATION_ACTION"

	// TypeNotify — показать уведомление (Scheduler → клиент).
	TypeNotify MessageType = "NOTIFY"

	// TypeFocus — вывести существующее окно клиента на передний план.
	TypeFocus MessageType = "FOCUS"

	// TypeOpenClient — отложенный запрос на открытие задачи: уходит первому
	// окну, подключившемуся после FocusOrOpen без окон.
	TypeOpenClient MessageType = "OPEN_CLIENT"

	// TypeTick — liveness tick от хоста с periodic background sync.
	TypeTick MessageType = "TICK"

	// TypeHello — клиент сообщает своё состояние разрешения на уведомления.
	TypeHello MessageType = "HELLO"

	// TypePing — keepalive, игнорируется.
	TypePing MessageType = "PING"
)

// IsSnapshot возвращает true для сообщений, несущих список задач.
func (t MessageType) IsSnapshot() bool {
	return t == TypeSetReminders || t == TypeTasksSnapshot
}

// Frame — одно сообщение протокола.
type Frame struct {
	Type MessageType `json:"type"`

	// Tasks — сырые задачи; разбираются поштучно через DecodeTasks,
	// чтобы одна битая запись не ломала весь snapshot.
	Tasks json.RawMessage `json:"tasks,omitempty"`

	// Trigger — источник snapshot'а: push, tick или reply.
	Trigger string `json:"trigger,omitempty"`

	// Action и Data — для NOTIFICATION_ACTION.
	Action string      `json:"action,omitempty"`
	Data   *ActionData `json:"data,omitempty"`

	// Notification — для NOTIFY.
	Notification *domain.Notification `json:"notification,omitempty"`

	// TaskID — для FOCUS и OPEN_CLIENT.
	TaskID string `json:"taskId,omitempty"`

	// Permission — для HELLO.
	Permission string `json:"permission,omitempty"`
}

// ActionData — данные уведомления, вернувшиеся вместе с действием.
type ActionData struct {
	TaskID string `json:"taskId"`
	DueAt  int64  `json:"dueAt"`
}

// WireTask — задача в формате протокола (dueAt в миллисекундах).
type WireTask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	DueAt     int64  `json:"dueAt"`
	Completed bool   `json:"completed,omitempty"`
}

// NewSetReminders строит SET_REMINDERS из списка задач.
func NewSetReminders(tasks []domain.Task) (Frame, error) {
	wire := make([]WireTask, 0, len(tasks))
	for i := range tasks {
		wire = append(wire, WireTask{
			ID:        tasks[i].ID,
			Title:     tasks[i].Title,
			DueAt:     tasks[i].DueAt.UnixMilli(),
			Completed: tasks[i].Completed,
		})
	}

	raw, err := json.Marshal(wire)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: TypeSetReminders, Tasks: raw}, nil
}

// NewNotify строит NOTIFY.
func NewNotify(n domain.Notification) Frame {
	return Frame{Type: TypeNotify, Notification: &n}
}

// Interaction извлекает действие пользователя из NOTIFICATION_ACTION.
func (f *Frame) Interaction() (domain.Interaction, error) {
	if f.Data == nil || f.Data.TaskID == "" {
		return domain.Interaction{}, ErrMissingActionData
	}

	return domain.Interaction{
		Action: domain.Action(f.Action),
		TaskID: f.Data.TaskID,
		DueAt:  time.UnixMilli(f.Data.DueAt),
	}, nil
}
