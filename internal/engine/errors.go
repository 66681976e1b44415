package engine

import "errors"

// Ошибки валидации определения workflow.
var (
	// ErrEmptyStates — workflow не содержит состояний.
	ErrEmptyStates = errors.New("workflow has no states")

	// ErrNoStartState — не задано стартовое состояние.
	ErrNoStartState = errors.New("workflow has no start state")

	// ErrStartNotFound — стартовое состояние отсутствует среди состояний.
	ErrStartNotFound = errors.New("start state not found")

	// ErrNullState — состояние задано как null.
	ErrNullState = errors.New("state is null")

	// ErrEmptyTask — состояние не ссылается на задачу.
	ErrEmptyTask = errors.New("state has empty task reference")

	// ErrNextAndEnd — у состояния заданы и next, и end.
	ErrNextAndEnd = errors.New("state has both next and end")

	// ErrNoTransition — у состояния не задано ни next, ни end.
	ErrNoTransition = errors.New("state has neither next nor end")

	// ErrDanglingNext — next ссылается на несуществующее состояние.
	ErrDanglingNext = errors.New("next references unknown state")

	// ErrCycleDetected — цепочка состояний содержит цикл.
	ErrCycleDetected = errors.New("cycle detected in state chain")

	// ErrUnreachableState — состояние недостижимо из стартового.
	ErrUnreachableState = errors.New("state not reachable from start")
)

// Ошибки загрузки и выполнения.
var (
	// ErrParseDefinition — ошибка разбора JSON-документа определения.
	ErrParseDefinition = errors.New("definition parse failed")

	// ErrStateNotFound — текущее состояние отсутствует в определении.
	ErrStateNotFound = errors.New("state not found in definition")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	State   string // имя состояния, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.State != "" {
		return "state " + e.State + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(state, field, message string, err error) *ValidationError {
	return &ValidationError{
		State:   state,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
