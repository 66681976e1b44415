package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Sequenta/internal/payload"
)

// Execution — одно выполнение workflow для одного триггерного события.
//
// Execution создаётся когда:
// - Приходит триггерное событие (например, object.created из MQ)
// - Пользователь запускает workflow вручную (через API/CLI)
// - Scheduler создаёт выполнение по расписанию
//
// Каждый execution полностью независим: выполнения разных событий
// не разделяют изменяемого состояния и идут параллельно.
type Execution struct {
	// ID — уникальный идентификатор execution.
	ID uuid.UUID `json:"id"`

	// WorkflowName — имя workflow, который выполняется.
	WorkflowName string `json:"workflow_name"`

	// WorkflowVersion — версия определения на момент запуска.
	WorkflowVersion int `json:"workflow_version"`

	// Status — текущий статус выполнения.
	Status ExecutionStatus `json:"status"`

	// CurrentState — имя состояния, в котором находится выполнение.
	CurrentState string `json:"current_state"`

	// CurrentPayload — payload после последнего завершённого этапа.
	// Для нового execution — начальный payload триггерного события.
	CurrentPayload payload.Value `json:"current_payload,omitempty"`

	// FailureReason — причина отказа. Заполнена тогда и только тогда,
	// когда Status == FAILED.
	FailureReason string `json:"failure_reason,omitempty"`

	// History — упорядоченная история пройденных этапов.
	// Записи только добавляются, одна на каждый начатый этап.
	History []HistoryEntry `json:"history,omitempty"`

	// IdempotencyKey — ключ дедупликации для executions, создаваемых
	// scheduler'ом. Пустой для executions, запущенных вручную или триггером.
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// StartedAt — время начала выполнения (когда статус стал RUNNING).
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения (успешного или с ошибкой).
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания execution.
	CreatedAt time.Time `json:"created_at"`
}

// HistoryEntry — запись истории об одном этапе выполнения.
type HistoryEntry struct {
	// Seq — порядковый номер этапа (начиная с 1).
	Seq int `json:"seq"`

	// StateName — имя состояния этапа.
	StateName string `json:"state_name"`

	// Input — вход, переданный задаче (результат input_selector).
	Input payload.Value `json:"input,omitempty"`

	// Output — извлечённый выход этапа (результат output_selector).
	// Null, если этап завершился отказом.
	Output payload.Value `json:"output,omitempty"`

	// CompletedAt — время завершения этапа.
	CompletedAt time.Time `json:"completed_at"`
}

// NewExecution создаёт execution в статусе PENDING.
func NewExecution(workflowName string, version int, startState string, initial payload.Value) *Execution {
	return &Execution{
		ID:              uuid.New(),
		WorkflowName:    workflowName,
		WorkflowVersion: version,
		Status:          ExecutionStatusPending,
		CurrentState:    startState,
		CurrentPayload:  initial,
		CreatedAt:       time.Now(),
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если execution ещё не завершён.
func (e *Execution) Duration() time.Duration {
	if e.StartedAt == nil || e.FinishedAt == nil {
		return 0
	}
	return e.FinishedAt.Sub(*e.StartedAt)
}

// IsFinished возвращает true, если execution завершён.
func (e *Execution) IsFinished() bool {
	return e.Status.IsTerminal()
}

// MarkRunning переводит execution в статус RUNNING.
func (e *Execution) MarkRunning() {
	if e.Status.IsTerminal() {
		return
	}
	now := time.Now()
	e.Status = ExecutionStatusRunning
	e.StartedAt = &now
}

// MarkSucceeded фиксирует успешное завершение с финальным payload.
// Статус покидает RUNNING ровно один раз: вызов на завершённом
// execution игнорируется.
func (e *Execution) MarkSucceeded(final payload.Value) {
	if e.Status.IsTerminal() {
		return
	}
	now := time.Now()
	e.Status = ExecutionStatusSucceeded
	e.CurrentPayload = final
	e.FinishedAt = &now
}

// MarkFailed фиксирует отказ с причиной.
// Вызов на завершённом execution игнорируется.
func (e *Execution) MarkFailed(reason string) {
	if e.Status.IsTerminal() {
		return
	}
	now := time.Now()
	e.Status = ExecutionStatusFailed
	e.FailureReason = reason
	e.FinishedAt = &now
}

// AdvanceTo переводит выполнение к следующему состоянию с новым payload.
func (e *Execution) AdvanceTo(state string, p payload.Value) {
	e.CurrentState = state
	e.CurrentPayload = p
}

// AppendHistory добавляет запись об этапе.
// Для этапа, завершившегося отказом, output равен nil.
func (e *Execution) AppendHistory(stateName string, input, output payload.Value) {
	e.History = append(e.History, HistoryEntry{
		Seq:         len(e.History) + 1,
		StateName:   stateName,
		Input:       input,
		Output:      output,
		CompletedAt: time.Now(),
	})
}
