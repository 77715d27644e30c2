package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges.
const (
	ExchangeReminders Exchange = "focus.reminders"
	ExchangeDLQ       Exchange = "focus.dlq"
)

// Queues.
const (
	// QueueSnapshots — SET_REMINDERS от focus-api, читает focus-reminderd.
	QueueSnapshots Queue = "reminders.snapshots"

	// QueueActions — NOTIFICATION_ACTION (snooze/open из API), читает focus-reminderd.
	QueueActions Queue = "reminders.actions"

	// QueueRequests — REQUEST_SNAPSHOT от focus-reminderd, читает focus-api.
	QueueRequests Queue = "reminders.requests"

	// QueueDLQ — сообщения, которые не удалось разобрать.
	QueueDLQ Queue = "dlq.reminders"
)

// Routing keys.
const (
	RoutingKeySnapshot RoutingKey = "snapshot"
	RoutingKeyAction   RoutingKey = "action"
	RoutingKeyRequest  RoutingKey = "request"
	RoutingKeyDLQ      RoutingKey = "reminders"
)

// binding — очередь, её ключ и аргументы.
type binding struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
	args       amqp.Table
}

// topology возвращает полное описание очередей.
// TTL snapshot'ов задаёт Publisher на каждом сообщении, а не очередь:
// он следует за liveness-интервалом и не требует передекларации.
func topology() []binding {
	deadLetter := func(extra amqp.Table) amqp.Table {
		args := amqp.Table{
			"x-dead-letter-exchange":    string(ExchangeDLQ),
			"x-dead-letter-routing-key": string(RoutingKeyDLQ),
		}
		for k, v := range extra {
			args[k] = v
		}
		return args
	}

	return []binding{
		{QueueSnapshots, RoutingKeySnapshot, ExchangeReminders, deadLetter(nil)},
		{QueueActions, RoutingKeyAction, ExchangeReminders, deadLetter(nil)},
		{QueueRequests, RoutingKeyRequest, ExchangeReminders, nil},
		{QueueDLQ, RoutingKeyDLQ, ExchangeDLQ, nil},
	}
}

// SetupTopology объявляет exchanges, очереди и привязки.
// Операции идемпотентны, каждый процесс вызывает её при старте.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, name := range []Exchange{ExchangeReminders, ExchangeDLQ} {
			err := ch.ExchangeDeclare(
				string(name), // name
				"direct",     // type
				true,         // durable
				false,        // auto-deleted
				false,        // internal
				false,        // no-wait
				nil,          // arguments
			)
			if err != nil {
				return fmt.Errorf("declare exchange %s: %w", name, err)
			}
		}

		for _, b := range topology() {
			_, err := ch.QueueDeclare(
				string(b.queue), // name
				true,            // durable
				false,           // delete when unused
				false,           // exclusive
				false,           // no-wait
				b.args,          // arguments
			)
			if err != nil {
				return fmt.Errorf("declare queue %s: %w", b.queue, err)
			}

			err = ch.QueueBind(
				string(b.queue),      // queue name
				string(b.routingKey), // routing key
				string(b.exchange),   // exchange
				false,                // no-wait
				nil,                  // arguments
			)
			if err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}

		return nil
	})
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  FocusTasks RabbitMQ Topology:

    focus.reminders (direct)
    ├── reminders.snapshots [routing: snapshot]
    │       Producer: focus-api   Consumer: focus-reminderd
    ├── reminders.actions   [routing: action]
    │       Producer: focus-api   Consumer: focus-reminderd
    └── reminders.requests  [routing: request]
            Producer: focus-reminderd   Consumer: focus-api

    focus.dlq (direct)
    └── dlq.reminders [routing: reminders]
            Manual processing
  `
}
