package conductor

import "errors"

// Ошибки conductor.
var (
	// ErrExecutionNotFound — execution не найден в БД.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrExecutionNotPending — execution не в статусе PENDING.
	ErrExecutionNotPending = errors.New("execution is not in PENDING status")

	// ErrExecutionAlreadyActive — execution уже обрабатывается.
	ErrExecutionAlreadyActive = errors.New("execution already being processed")
)
