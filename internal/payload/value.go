package payload

import (
	"encoding/json"
	"fmt"
)

// Value — обобщённое JSON-значение, передаваемое между шагами workflow.
//
// Допустимые формы:
//   - map[string]any — объект
//   - []any          — массив
//   - string, float64, bool — скаляры
//   - nil            — null
//
// Значения получаются из json.Unmarshal и сохраняют его представление
// (все числа — float64). Фиксированной схемы нет: каждая задача
// интерпретирует свою часть дерева самостоятельно.
type Value = any

// Decode разбирает JSON-документ в Value.
func Decode(data []byte) (Value, error) {
	var v Value
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return v, nil
}

// Encode сериализует Value в JSON.
func Encode(v Value) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return data, nil
}

// MustDecode разбирает JSON-строку и паникует при ошибке.
// Используется только для тестов.
func MustDecode(data string) Value {
	v, err := Decode([]byte(data))
	if err != nil {
		panic(err)
	}
	return v
}

// Clone возвращает глубокую копию значения.
// Объекты и массивы копируются рекурсивно, скаляры — как есть.
func Clone(v Value) Value {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for key, item := range val {
			result[key] = Clone(item)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = Clone(item)
		}
		return result
	default:
		// Скаляры неизменяемы
		return v
	}
}

// Equal сравнивает два значения структурно.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for key, item := range av {
			other, exists := bv[key]
			if !exists || !Equal(item, other) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i, item := range av {
			if !Equal(item, bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// TypeName возвращает человекочитаемое имя формы значения.
// Используется в сообщениях об ошибках.
func TypeName(v Value) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
