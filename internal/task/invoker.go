package task

import (
	"context"

	"github.com/shaiso/Sequenta/internal/payload"
)

// Invoker — интерфейс вызова внешней задачи.
//
// Вызов синхронный и однократный: никаких внутренних повторов.
// Любая возвращённая ошибка трактуется движком как отказ задачи и
// завершает выполнение. Таймаут — забота реализации; истёкший
// таймаут возвращается обычной ошибкой.
//
// Реализации: HTTPInvoker, DelayInvoker, TransformInvoker, Func.
// Registry сам реализует Invoker и диспетчеризует по схеме ссылки.
type Invoker interface {
	// Invoke выполняет задачу taskRef со входом input и возвращает
	// сырой результат. Долгий вызов должен уважать отмену ctx.
	Invoke(ctx context.Context, taskRef string, input payload.Value) (payload.Value, error)
}

// Func — адаптер, позволяющий использовать функцию как Invoker.
// Основное применение — детерминированные фейки задач в тестах.
type Func func(ctx context.Context, taskRef string, input payload.Value) (payload.Value, error)

// Invoke реализует интерфейс Invoker.
func (f Func) Invoke(ctx context.Context, taskRef string, input payload.Value) (payload.Value, error) {
	return f(ctx, taskRef, input)
}
