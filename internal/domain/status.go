package domain

// ExecutionStatus — статус выполнения execution.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
//
// Статус покидает RUNNING ровно один раз; из терминальных
// статусов переходов нет.
type ExecutionStatus string

const (
	// ExecutionStatusPending — execution создан, но ещё не начал выполняться.
	ExecutionStatusPending ExecutionStatus = "PENDING"

	// ExecutionStatusRunning — execution в процессе выполнения.
	ExecutionStatusRunning ExecutionStatus = "RUNNING"

	// ExecutionStatusSucceeded — все этапы завершились успешно.
	ExecutionStatusSucceeded ExecutionStatus = "SUCCEEDED"

	// ExecutionStatusFailed — выполнение остановлено отказом этапа.
	ExecutionStatusFailed ExecutionStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный (execution завершён).
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusSucceeded, ExecutionStatusFailed:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление статуса.
func (s ExecutionStatus) String() string {
	return string(s)
}

// ParseExecutionStatus парсит строку в ExecutionStatus.
// Второе значение — false, если строка не является известным статусом.
func ParseExecutionStatus(s string) (ExecutionStatus, bool) {
	switch s {
	case "PENDING":
		return ExecutionStatusPending, true
	case "RUNNING":
		return ExecutionStatusRunning, true
	case "SUCCEEDED":
		return ExecutionStatusSucceeded, true
	case "FAILED":
		return ExecutionStatusFailed, true
	default:
		return "", false
	}
}
