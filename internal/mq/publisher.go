package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
// Для триггерных событий тип совпадает с типом триггера из определения workflow.
type MessageType string

// Типы сообщений.
const (
	MessageTypeObjectCreated      MessageType = "object.created"
	MessageTypeExecutionRequested MessageType = "execution.requested"
	MessageTypeExecutionSucceeded MessageType = "execution.succeeded"
	MessageTypeExecutionFailed    MessageType = "execution.failed"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// ObjectCreatedPayload — событие о появлении нового объекта в хранилище.
// Форма повторяет уведомления объектных хранилищ: detail.bucket.name и
// detail.object.key. Целиком становится начальным payload выполнения.
type ObjectCreatedPayload struct {
	Detail ObjectDetail `json:"detail"`
}

// ObjectDetail — детали события объектного хранилища.
type ObjectDetail struct {
	Bucket ObjectBucket `json:"bucket"`
	Object ObjectRef    `json:"object"`
}

// ObjectBucket — бакет, в котором появился объект.
type ObjectBucket struct {
	Name string `json:"name"`
}

// ObjectRef — ключ объекта.
type ObjectRef struct {
	Key string `json:"key"`
}

// ExecutionRequestedPayload — payload для запроса на запуск выполнения.
type ExecutionRequestedPayload struct {
	ExecutionID uuid.UUID `json:"execution_id"`
}

// ExecutionSucceededPayload — payload события об успешном завершении.
type ExecutionSucceededPayload struct {
	ExecutionID  uuid.UUID `json:"execution_id"`
	WorkflowName string    `json:"workflow_name"`
}

// ExecutionFailedPayload — payload события о неуспешном завершении.
type ExecutionFailedPayload struct {
	ExecutionID  uuid.UUID `json:"execution_id"`
	WorkflowName string    `json:"workflow_name"`
	Reason       string    `json:"reason"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
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

// PublishTrigger публикует триггерное событие произвольного типа.
// Ключ маршрутизации — сам тип триггера; событие без привязанной
// очереди брокер отбрасывает. Потребитель: Conductor.
func (p *Publisher) PublishTrigger(ctx context.Context, triggerType string, event any) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageType(triggerType),
		Payload:   event,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeTriggers, RoutingKey(triggerType), msg)
}

// PublishObjectCreated публикует событие о новом объекте в хранилище.
// Потребитель: Conductor.
func (p *Publisher) PublishObjectCreated(ctx context.Context, bucket, key string) error {
	event := ObjectCreatedPayload{
		Detail: ObjectDetail{
			Bucket: ObjectBucket{Name: bucket},
			Object: ObjectRef{Key: key},
		},
	}

	return p.PublishTrigger(ctx, string(MessageTypeObjectCreated), event)
}

// PublishExecutionRequested публикует запрос на запуск выполнения.
// Потребитель: Conductor.
func (p *Publisher) PublishExecutionRequested(ctx context.Context, executionID uuid.UUID) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeExecutionRequested,
		Payload:   ExecutionRequestedPayload{ExecutionID: executionID},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeExecutions, RoutingKeyRequested, msg)
}

// PublishExecutionSucceeded публикует событие об успешно завершённом выполнении.
func (p *Publisher) PublishExecutionSucceeded(ctx context.Context, executionID uuid.UUID, workflowName string) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeExecutionSucceeded,
		Payload:   ExecutionSucceededPayload{ExecutionID: executionID, WorkflowName: workflowName},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeExecutions, RoutingKeySucceeded, msg)
}

// PublishExecutionFailed публикует событие о неуспешно завершённом выполнении.
func (p *Publisher) PublishExecutionFailed(ctx context.Context, executionID uuid.UUID, workflowName, reason string) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeExecutionFailed,
		Payload:   ExecutionFailedPayload{ExecutionID: executionID, WorkflowName: workflowName, Reason: reason},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeExecutions, RoutingKeyFailed, msg)
}
