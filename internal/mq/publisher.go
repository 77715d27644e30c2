package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/FocusTasks/internal/protocol"
)

// Message — конверт сообщения в очереди.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type дублирует Frame.Type для логов и фильтрации.
	Type protocol.MessageType `json:"type"`

	// Frame — сообщение протокола напоминаний.
	Frame protocol.Frame `json:"frame"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`

	// TTL — через сколько сообщение в очереди устаревает (0 — никогда).
	TTL time.Duration `json:"-"`
}

// NewMessage оборачивает Frame в конверт.
func NewMessage(f protocol.Frame) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      f.Type,
		Frame:     f,
		Timestamp: time.Now(),
	}
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn       *Connection
	logger     *slog.Logger
	staleAfter time.Duration
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// WithStaleAfter задаёт TTL snapshot'ов и запросов snapshot'а.
// Обычно это liveness-интервал: к его концу придёт более свежий.
func (p *Publisher) WithStaleAfter(d time.Duration) *Publisher {
	p.staleAfter = d
	return p
}

// expiration переводит TTL в поле Expiration (миллисекунды строкой).
func expiration(ttl time.Duration) string {
	if ttl <= 0 {
		return ""
	}
	return strconv.FormatInt(ttl.Milliseconds(), 10)
}

// Publish публикует сообщение в exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),
			string(routingKey),
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Expiration:   expiration(msg.TTL),
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishSnapshot публикует SET_REMINDERS.
// Потребитель: focus-reminderd.
func (p *Publisher) PublishSnapshot(ctx context.Context, f protocol.Frame) error {
	if !f.Type.IsSnapshot() {
		return fmt.Errorf("publish snapshot: unexpected frame type %s", f.Type)
	}
	msg := NewMessage(f)
	msg.TTL = p.staleAfter
	return p.Publish(ctx, ExchangeReminders, RoutingKeySnapshot, msg)
}

// PublishAction публикует NOTIFICATION_ACTION.
// Потребитель: focus-reminderd.
func (p *Publisher) PublishAction(ctx context.Context, action string, data protocol.ActionData) error {
	f := protocol.Frame{
		Type:   protocol.TypeNotificationAction,
		Action: action,
		Data:   &data,
	}
	return p.Publish(ctx, ExchangeReminders, RoutingKeyAction, NewMessage(f))
}

// PublishSnapshotRequest публикует REQUEST_SNAPSHOT.
// Потребитель: focus-api.
func (p *Publisher) PublishSnapshotRequest(ctx context.Context) error {
	msg := NewMessage(protocol.Frame{Type: protocol.TypeRequestSnapshot})
	msg.TTL = p.staleAfter
	return p.Publish(ctx, ExchangeReminders, RoutingKeyRequest, msg)
}
