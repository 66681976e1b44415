package payload

import (
	"errors"
	"testing"
)

func TestResolve_Root(t *testing.T) {
	// Корневой селектор — тождественное преобразование для любой формы
	values := []Value{
		MustDecode(`{"id":"img1"}`),
		MustDecode(`[1,2,3]`),
		MustDecode(`"scalar"`),
		MustDecode(`42`),
		MustDecode(`true`),
		nil,
	}

	for _, v := range values {
		got, err := Resolve(v, "$")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !Equal(got, v) {
			t.Errorf("expected %v, got %v", v, got)
		}
	}
}

func TestResolve_Fields(t *testing.T) {
	event := MustDecode(`{
		"detail": {
			"bucket": {"name": "waste-images"},
			"object": {"key": "uploads/bin-42.jpg"}
		},
		"classification": "recycle",
		"Score": 0.91
	}`)

	tests := []struct {
		name     string
		selector string
		expected Value
	}{
		{
			name:     "top level field",
			selector: "$.classification",
			expected: "recycle",
		},
		{
			name:     "nested field",
			selector: "$.detail.bucket.name",
			expected: "waste-images",
		},
		{
			name:     "nested object",
			selector: "$.detail.object",
			expected: MustDecode(`{"key": "uploads/bin-42.jpg"}`),
		},
		{
			name:     "number field",
			selector: "$.Score",
			expected: 0.91,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(event, tt.selector)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !Equal(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestResolve_ArrayIndex(t *testing.T) {
	v := MustDecode(`{"items": [{"name": "first"}, {"name": "second"}], "tags": ["a", "b"]}`)

	got, err := Resolve(v, "$.items[1].name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "second" {
		t.Errorf("expected second, got %v", got)
	}

	got, err = Resolve(v, "$.tags[0]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a" {
		t.Errorf("expected a, got %v", got)
	}
}

func TestResolve_PathNotFound(t *testing.T) {
	v := MustDecode(`{"detail": {"bucket": {"name": "waste-images"}}, "items": ["a"], "count": 3}`)

	tests := []struct {
		name     string
		selector string
	}{
		{name: "missing field", selector: "$.missing"},
		{name: "missing nested field", selector: "$.detail.region"},
		{name: "field access on string", selector: "$.detail.bucket.name.first"},
		{name: "field access on number", selector: "$.count.value"},
		{name: "field access on array", selector: "$.items.name"},
		{name: "index on object", selector: "$.detail[0]"},
		{name: "index out of range", selector: "$.items[5]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(v, tt.selector)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrPathNotFound) {
				t.Errorf("expected ErrPathNotFound, got %v", err)
			}
		})
	}
}

func TestResolve_InvalidSelector(t *testing.T) {
	v := MustDecode(`{"a": 1}`)

	tests := []struct {
		name     string
		selector string
	}{
		{name: "empty", selector: ""},
		{name: "no root", selector: "a.b"},
		{name: "trailing dot", selector: "$."},
		{name: "double dot", selector: "$..a"},
		{name: "unclosed index", selector: "$.items[2"},
		{name: "non numeric index", selector: "$.items[x]"},
		{name: "negative index", selector: "$.items[-1]"},
		{name: "stray character", selector: "$a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(v, tt.selector)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrInvalidSelector) {
				t.Errorf("expected ErrInvalidSelector, got %v", err)
			}
		})
	}
}

func TestResolve_NoCoercion(t *testing.T) {
	// null у поля — валидное значение, отсутствие поля — ошибка
	v := MustDecode(`{"present": null}`)

	got, err := Resolve(v, "$.present")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %v", got)
	}

	_, err = Resolve(v, "$.absent")
	if !errors.Is(err, ErrPathNotFound) {
		t.Errorf("expected ErrPathNotFound, got %v", err)
	}
}

func TestValidateSelector(t *testing.T) {
	valid := []string{"$", "$.a", "$.a.b.c", "$.items[0]", "$.items[12].name", "$.Payload"}
	for _, s := range valid {
		if err := ValidateSelector(s); err != nil {
			t.Errorf("selector %q should be valid, got %v", s, err)
		}
	}

	invalid := []string{"", "$.", "$[", "payload", "$.a..b"}
	for _, s := range invalid {
		if err := ValidateSelector(s); err == nil {
			t.Errorf("selector %q should be invalid", s)
		}
	}
}

func TestPathError_Message(t *testing.T) {
	_, err := Resolve(MustDecode(`{"a": {}}`), "$.a.b")
	if err == nil {
		t.Fatal("expected error")
	}

	var pathErr *PathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("expected *PathError, got %T", err)
	}
	if pathErr.Selector != "$.a.b" {
		t.Errorf("expected selector $.a.b, got %s", pathErr.Selector)
	}
	if pathErr.Segment != "b" {
		t.Errorf("expected segment b, got %s", pathErr.Segment)
	}
}
