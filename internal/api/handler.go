package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/FocusTasks/internal/protocol"
	"github.com/shaiso/FocusTasks/internal/reminder"
	"github.com/shaiso/FocusTasks/internal/repo"
)

// Pusher отправляет snapshot задач планировщику (source.Source).
type Pusher interface {
	Push(ctx context.Context, trigger reminder.Trigger) (int, error)
	PushAsync(trigger reminder.Trigger)
}

// ActionPublisher передаёт действие с уведомлением планировщику (mq.Publisher).
type ActionPublisher interface {
	PublishAction(ctx context.Context, action string, data protocol.ActionData) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	store     repo.TaskStore
	pusher    Pusher
	publisher ActionPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// Config — конфигурация для создания Handler.
type Config struct {
	Store repo.TaskStore

	// Pusher — nil: изменения задач не доходят до планировщика сразу,
	// только со следующим liveness tick.
	Pusher Pusher

	// Publisher — nil: snooze через API недоступен.
	Publisher ActionPublisher

	Logger *slog.Logger
	Now    func() time.Time
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Handler{
		store:     cfg.Store,
		pusher:    cfg.Pusher,
		publisher: cfg.Publisher,
		logger:    logger,
		now:       now,
	}
}

// changed сообщает планировщику об изменении задач.
func (h *Handler) changed() {
	if h.pusher != nil {
		h.pusher.PushAsync(reminder.TriggerPush)
	}
}
