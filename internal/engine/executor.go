package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Sequenta/internal/domain"
	"github.com/shaiso/Sequenta/internal/payload"
	"github.com/shaiso/Sequenta/internal/task"
)

// Engine — движок выполнения workflow.
//
// Движок интерпретирует валидированное определение: на каждом этапе
// строит вход задачи, вызывает задачу через Invoker, извлекает выход
// и передаёт его следующему состоянию. Повторов нет: первый отказ
// любого этапа завершает выполнение со статусом FAILED.
//
// Движок не знает о хранилище и MQ — он мутирует переданный
// Execution, а персистентность обеспечивает вызывающая сторона.
type Engine struct {
	invoker task.Invoker
	logger  *slog.Logger
}

// Config — конфигурация движка.
type Config struct {
	// Invoker — исполнитель задач (default: task.DefaultRegistry()).
	Invoker task.Invoker

	// Logger — логгер (default: slog.Default()).
	Logger *slog.Logger
}

// New создаёт движок выполнения.
// Для полей конфигурации с нулевыми значениями применяются дефолты.
func New(cfg Config) *Engine {
	if cfg.Invoker == nil {
		cfg.Invoker = task.DefaultRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		invoker: cfg.Invoker,
		logger:  cfg.Logger,
	}
}

// Run доводит execution до терминального статуса, повторяя Step,
// пока машина в фазе RUNNING. Возвращает терминальное состояние
// машины. Вызов на уже завершённом execution ничего не выполняет.
func (e *Engine) Run(ctx context.Context, def *domain.WorkflowDef, exec *domain.Execution) MachineState {
	switch exec.Status {
	case domain.ExecutionStatusSucceeded:
		return Succeeded(exec.CurrentPayload)
	case domain.ExecutionStatusFailed:
		return Failed(exec.FailureReason)
	}

	logger := e.logger.With(
		"execution_id", exec.ID.String(),
		"workflow", exec.WorkflowName,
	)

	exec.MarkRunning()
	logger.Info("execution started", "state", exec.CurrentState)

	st := Running(exec.CurrentState, exec.CurrentPayload)
	for st.Phase == PhaseRunning {
		st = e.Step(ctx, def, st, exec)
	}

	switch st.Phase {
	case PhaseSucceeded:
		logger.Info("execution succeeded", "stages", len(exec.History))
	case PhaseFailed:
		logger.Warn("execution failed", "reason", st.Reason)
	}
	return st
}

// Step выполняет один переход машины: этап текущего состояния.
//
// Step полностью обновляет exec — добавляет запись истории начатого
// этапа, продвигает текущее состояние либо фиксирует терминальный
// статус — так что вызывающая сторона может сохранять execution
// после каждого перехода. Терминальное состояние машины возвращается
// без изменений.
func (e *Engine) Step(ctx context.Context, def *domain.WorkflowDef, st MachineState, exec *domain.Execution) MachineState {
	if st.IsTerminal() {
		return st
	}

	if err := ctx.Err(); err != nil {
		return e.fail(exec, fmt.Sprintf("execution cancelled: %v", err))
	}

	state, ok := def.StateAt(st.StateName)
	if !ok {
		// Недостижимо для валидированного определения
		return e.fail(exec, fmt.Sprintf("%v: %s", ErrStateNotFound, st.StateName))
	}

	input, err := state.BuildInput(st.Payload)
	if err != nil {
		exec.AppendHistory(state.Name, nil, nil)
		return e.fail(exec, fmt.Sprintf("state %s: build input: %v", state.Name, err))
	}

	// Задача получает копию входа: мутации на стороне задачи
	// не должны затрагивать payload и историю.
	raw, err := e.invoker.Invoke(ctx, state.Task, payload.Clone(input))
	if err != nil {
		exec.AppendHistory(state.Name, input, nil)
		return e.fail(exec, fmt.Sprintf("state %s: task %s: %v", state.Name, state.Task, err))
	}

	output, err := state.ExtractOutput(raw)
	if err != nil {
		exec.AppendHistory(state.Name, input, nil)
		return e.fail(exec, fmt.Sprintf("state %s: extract output: %v", state.Name, err))
	}

	exec.AppendHistory(state.Name, input, output)
	e.logger.Debug("stage completed",
		"execution_id", exec.ID.String(),
		"state", state.Name,
		"task", state.Task,
	)

	if state.IsTerminal() {
		exec.MarkSucceeded(output)
		return Succeeded(output)
	}

	exec.AdvanceTo(state.Next, output)
	return Running(state.Next, output)
}

// fail фиксирует отказ execution и возвращает терминальное состояние.
func (e *Engine) fail(exec *domain.Execution, reason string) MachineState {
	exec.MarkFailed(reason)
	return Failed(reason)
}
