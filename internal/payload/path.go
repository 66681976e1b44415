package payload

import (
	"fmt"
	"strconv"
	"strings"
)

// segment — один сегмент пути селектора.
type segment struct {
	field   string // имя поля объекта
	index   int    // индекс элемента массива
	isIndex bool   // true — сегмент-индекс, false — сегмент-поле
}

// String возвращает сегмент в исходной записи.
func (s segment) String() string {
	if s.isIndex {
		return "[" + strconv.Itoa(s.index) + "]"
	}
	return s.field
}

// parseSelector разбирает селектор в последовательность сегментов.
//
// Грамматика:
//
//	$            — корень (пустая последовательность сегментов)
//	$.field      — поле объекта
//	$.a.b        — вложенные поля
//	$.items[2]   — элемент массива
//
// Имя поля — любая непустая последовательность символов без '.' и '['.
func parseSelector(selector string) ([]segment, error) {
	if selector == "" {
		return nil, newPathError(selector, "", "empty selector", ErrInvalidSelector)
	}
	if selector[0] != '$' {
		return nil, newPathError(selector, "", "selector must start with $", ErrInvalidSelector)
	}

	rest := selector[1:]
	var segs []segment

	for len(rest) > 0 {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			end := strings.IndexAny(rest, ".[")
			var name string
			if end == -1 {
				name, rest = rest, ""
			} else {
				name, rest = rest[:end], rest[end:]
			}
			if name == "" {
				return nil, newPathError(selector, "", "empty field name", ErrInvalidSelector)
			}
			segs = append(segs, segment{field: name})

		case '[':
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				return nil, newPathError(selector, "", "unclosed array index", ErrInvalidSelector)
			}
			idx, err := strconv.Atoi(rest[1:end])
			if err != nil || idx < 0 {
				return nil, newPathError(selector, "",
					fmt.Sprintf("bad array index %q", rest[1:end]), ErrInvalidSelector)
			}
			segs = append(segs, segment{index: idx, isIndex: true})
			rest = rest[end+1:]

		default:
			return nil, newPathError(selector, "",
				fmt.Sprintf("unexpected character %q", rest[0]), ErrInvalidSelector)
		}
	}

	return segs, nil
}

// ValidateSelector проверяет синтаксис селектора без разрешения.
// Вызывается при загрузке определения workflow.
func ValidateSelector(selector string) error {
	_, err := parseSelector(selector)
	return err
}

// Resolve разрешает селектор против значения.
//
// Корневой селектор "$" возвращает значение без изменений.
// Отсутствующее поле, выход за границы массива, сегмент-поле на
// не-объекте и сегмент-индекс на не-массиве дают ErrPathNotFound;
// приведение типов не выполняется.
func Resolve(v Value, selector string) (Value, error) {
	segs, err := parseSelector(selector)
	if err != nil {
		return nil, err
	}

	cur := v
	for _, seg := range segs {
		if seg.isIndex {
			arr, ok := cur.([]any)
			if !ok {
				return nil, newPathError(selector, seg.String(),
					"index applied to "+TypeName(cur), ErrPathNotFound)
			}
			if seg.index >= len(arr) {
				return nil, newPathError(selector, seg.String(),
					fmt.Sprintf("index out of range, array has %d elements", len(arr)),
					ErrPathNotFound)
			}
			cur = arr[seg.index]
			continue
		}

		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, newPathError(selector, seg.String(),
				"field access on "+TypeName(cur), ErrPathNotFound)
		}
		item, exists := obj[seg.field]
		if !exists {
			return nil, newPathError(selector, seg.String(),
				"field "+strconv.Quote(seg.field)+" not found", ErrPathNotFound)
		}
		cur = item
	}

	return cur, nil
}
