package mq

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaiso/FocusTasks/internal/protocol"
)

// ErrCannotOpenClient — по очереди нельзя сфокусировать или открыть окно.
var ErrCannotOpenClient = errors.New("mq bridge cannot focus or open a client")

// FrameFunc обрабатывает одно сообщение протокола.
type FrameFunc func(ctx context.Context, f protocol.Frame) error

// FrameHandler строит Handler, который достаёт Frame из конверта.
// Ошибки разбора протокола считаются постоянными: повтор не поможет.
func FrameHandler(fn FrameFunc) Handler {
	return func(ctx context.Context, d *Delivery) error {
		f := d.Message.Frame
		if f.Type == "" {
			return Permanent(fmt.Errorf("message %s: empty frame", d.Message.ID))
		}

		err := fn(ctx, f)
		if errors.Is(err, protocol.ErrMalformedTask) || errors.Is(err, protocol.ErrMissingActionData) {
			return Permanent(err)
		}
		return err
	}
}

// Bridge — обратный канал планировщика через RabbitMQ.
//
// RequestSnapshot публикует REQUEST_SNAPSHOT для focus-api.
// Фокусировать окна Bridge не умеет: этим занимается gateway.
type Bridge struct {
	publisher *Publisher
}

// NewBridge создаёт Bridge.
func NewBridge(publisher *Publisher) *Bridge {
	return &Bridge{publisher: publisher}
}

// RequestSnapshot просит focus-api прислать SET_REMINDERS.
func (b *Bridge) RequestSnapshot(ctx context.Context) error {
	return b.publisher.PublishSnapshotRequest(ctx)
}

// FocusOrOpen всегда возвращает ErrCannotOpenClient.
func (b *Bridge) FocusOrOpen(context.Context, string) error {
	return ErrCannotOpenClient
}
