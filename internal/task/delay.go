package task

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/Sequenta/internal/payload"
)

// DelayInvoker — инвокер паузы.
//
// Ссылка задачи: "delay:<длительность>", например "delay:2s" или
// "delay:500ms". Вход возвращается без изменений после паузы.
// Моделирует долгую задачу и уважает отмену контекста.
type DelayInvoker struct{}

// NewDelayInvoker создаёт инвокер паузы.
func NewDelayInvoker() *DelayInvoker {
	return &DelayInvoker{}
}

// Invoke ждёт указанную в ссылке длительность и возвращает вход.
func (i *DelayInvoker) Invoke(ctx context.Context, taskRef string, input payload.Value) (payload.Value, error) {
	duration, err := parseDelayRef(taskRef)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrInvokeCancelled, ctx.Err())
	case <-timer.C:
		return input, nil
	}
}

// parseDelayRef извлекает длительность из ссылки вида "delay:2s".
func parseDelayRef(taskRef string) (time.Duration, error) {
	value := RefValue(taskRef)
	if value == "" {
		return 0, fmt.Errorf("%w: %s: missing duration", ErrInvalidTaskRef, taskRef)
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidTaskRef, taskRef, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("%w: %s: duration must be positive", ErrInvalidTaskRef, taskRef)
	}
	return duration, nil
}
