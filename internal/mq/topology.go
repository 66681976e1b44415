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

// Exchanges — имена обменников.
const (
	ExchangeTriggers   Exchange = "sequenta.triggers"
	ExchangeExecutions Exchange = "sequenta.executions"
	ExchangeDLQ        Exchange = "sequenta.dlq"
)

// Queues — имена очередей.
const (
	QueueTriggersObjectCreated Queue = "triggers.object.created"
	QueueExecutionsRequested   Queue = "executions.requested"
	QueueExecutionsCompleted   Queue = "executions.completed"
	QueueDLQEvents             Queue = "dlq.events"
)

// Routing keys. Для триггеров ключ маршрутизации совпадает с типом
// триггера из определения workflow (например, "object.created"); событие
// без привязанной очереди отбрасывается брокером.
const (
	RoutingKeyObjectCreated RoutingKey = "object.created"
	RoutingKeyRequested     RoutingKey = "requested"
	RoutingKeySucceeded     RoutingKey = "succeeded"
	RoutingKeyFailed        RoutingKey = "failed"
	RoutingKeyDLQEvents     RoutingKey = "events"
)

func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		// 1. Создаём exchanges
		if err := declareExchanges(ch); err != nil {
			return err
		}

		// 2. Создаём queues
		if err := declareQueues(ch); err != nil {
			return err
		}

		// 3. Привязываем queues к exchanges
		if err := bindQueues(ch); err != nil {
			return err
		}

		return nil
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeTriggers, "direct"},
		{ExchangeExecutions, "direct"},
		{ExchangeDLQ, "direct"},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	// Аргументы для очередей с DLQ
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQEvents),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		// triggers.object.created — с DLQ (некорректное событие не теряется)
		{QueueTriggersObjectCreated, dlqArgs},

		// executions.requested — с DLQ (запросы на запуск)
		{QueueExecutionsRequested, dlqArgs},

		// executions.completed — без DLQ (события о завершении для внешних наблюдателей)
		{QueueExecutionsCompleted, nil},

		// dlq.events — сама DLQ очередь
		{QueueDLQEvents, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueTriggersObjectCreated, RoutingKeyObjectCreated, ExchangeTriggers},
		{QueueExecutionsRequested, RoutingKeyRequested, ExchangeExecutions},
		// Одна очередь собирает оба терминальных события
		{QueueExecutionsCompleted, RoutingKeySucceeded, ExchangeExecutions},
		{QueueExecutionsCompleted, RoutingKeyFailed, ExchangeExecutions},
		{QueueDLQEvents, RoutingKeyDLQEvents, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
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
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Sequenta RabbitMQ Topology:

    sequenta.triggers (direct)
    └── triggers.object.created [routing: object.created]
            Consumer: Conductor
            DLQ: dlq.events

    sequenta.executions (direct)
    ├── executions.requested [routing: requested]
    │       Consumer: Conductor
    │       DLQ: dlq.events
    └── executions.completed [routing: succeeded, failed]
            External observers

    sequenta.dlq (direct)
    └── dlq.events [routing: events]
            Manual processing
  `
}
