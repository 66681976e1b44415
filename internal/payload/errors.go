package payload

import "errors"

// Ошибки модели payload.
var (
	// ErrPathNotFound — селектор не разрешается против значения.
	ErrPathNotFound = errors.New("path not found in payload")

	// ErrInvalidSelector — селектор синтаксически некорректен.
	ErrInvalidSelector = errors.New("invalid path selector")

	// ErrDecode — ошибка разбора JSON-документа.
	ErrDecode = errors.New("payload decode failed")

	// ErrEncode — ошибка сериализации в JSON.
	ErrEncode = errors.New("payload encode failed")
)

// PathError — ошибка разрешения селектора с контекстом.
type PathError struct {
	Selector string // исходный селектор
	Segment  string // сегмент, на котором прервалось разрешение
	Message  string // описание ошибки
	Err      error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *PathError) Error() string {
	if e.Segment != "" {
		return "selector " + e.Selector + ": " + e.Segment + ": " + e.Message
	}
	return "selector " + e.Selector + ": " + e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *PathError) Unwrap() error {
	return e.Err
}

// newPathError создаёт ошибку разрешения селектора.
func newPathError(selector, segment, message string, err error) *PathError {
	return &PathError{
		Selector: selector,
		Segment:  segment,
		Message:  message,
		Err:      err,
	}
}
