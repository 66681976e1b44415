package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/Sequenta/internal/domain"
)

func TestParse_InvalidJSON(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "garbage", data: "{not json"},
		{name: "wrong type", data: `{"start_at": 42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if !errors.Is(err, ErrParseDefinition) {
				t.Errorf("expected ErrParseDefinition, got %v", err)
			}
		})
	}
}

func TestParse_ValidDefinition(t *testing.T) {
	data := []byte(`{
		"name": "waste-classification",
		"comment": "classify uploaded waste images",
		"start_at": "extract",
		"states": {
			"extract": {"task": "transform:{{ json . }}", "next": "classify"},
			"classify": {"task": "http://classifier:8080/classify", "output_selector": "$.Payload", "next": "store"},
			"store": {"task": "http://store:8080/items", "end": true}
		}
	}`)

	def, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if def.StartAt != "extract" {
		t.Errorf("expected start_at 'extract', got %s", def.StartAt)
	}
	if len(def.States) != 3 {
		t.Errorf("expected 3 states, got %d", len(def.States))
	}

	// Normalize заполнил имена и селекторы по умолчанию
	classify, ok := def.StateAt("classify")
	if !ok {
		t.Fatal("state 'classify' not found")
	}
	if classify.Name != "classify" {
		t.Errorf("expected state name 'classify', got %q", classify.Name)
	}
	if classify.InputSelector != domain.DefaultSelector {
		t.Errorf("expected default input selector, got %q", classify.InputSelector)
	}
	if classify.OutputSelector != "$.Payload" {
		t.Errorf("expected output selector '$.Payload', got %q", classify.OutputSelector)
	}
}

func TestValidate_EmptyStates(t *testing.T) {
	tests := []struct {
		name string
		def  *domain.WorkflowDef
	}{
		{
			name: "nil definition",
			def:  nil,
		},
		{
			name: "empty states",
			def: &domain.WorkflowDef{
				StartAt: "a",
				States:  map[string]*domain.StateDef{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.def)
			if !errors.Is(err, ErrEmptyStates) {
				t.Errorf("expected ErrEmptyStates, got %v", err)
			}
		})
	}
}

func TestValidate_NoStartState(t *testing.T) {
	def := &domain.WorkflowDef{
		States: map[string]*domain.StateDef{
			"a": {Task: "t", End: true},
		},
	}

	err := Validate(def)
	if !errors.Is(err, ErrNoStartState) {
		t.Errorf("expected ErrNoStartState, got %v", err)
	}
}

func TestValidate_StartNotFound(t *testing.T) {
	def := &domain.WorkflowDef{
		StartAt: "missing",
		States: map[string]*domain.StateDef{
			"a": {Task: "t", End: true},
		},
	}

	err := Validate(def)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if !errors.Is(vErr.Err, ErrStartNotFound) {
		t.Errorf("expected ErrStartNotFound, got %v", vErr.Err)
	}
}

func TestValidate_NullState(t *testing.T) {
	def := &domain.WorkflowDef{
		StartAt: "a",
		States: map[string]*domain.StateDef{
			"a": {Task: "t", End: true},
			"b": nil,
		},
	}

	err := Validate(def)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if !errors.Is(vErr.Err, ErrNullState) {
		t.Errorf("expected ErrNullState, got %v", vErr.Err)
	}
}

func TestValidate_EmptyTask(t *testing.T) {
	def := &domain.WorkflowDef{
		StartAt: "a",
		States: map[string]*domain.StateDef{
			"a": {Task: "", End: true},
		},
	}

	err := Validate(def)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if !errors.Is(vErr.Err, ErrEmptyTask) {
		t.Errorf("expected ErrEmptyTask, got %v", vErr.Err)
	}
	if vErr.State != "a" {
		t.Errorf("expected state 'a' in error, got %q", vErr.State)
	}
}

func TestValidate_NextAndEnd(t *testing.T) {
	def := &domain.WorkflowDef{
		StartAt: "a",
		States: map[string]*domain.StateDef{
			"a": {Task: "t", Next: "b", End: true},
			"b": {Task: "t", End: true},
		},
	}

	err := Validate(def)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if !errors.Is(vErr.Err, ErrNextAndEnd) {
		t.Errorf("expected ErrNextAndEnd, got %v", vErr.Err)
	}
}

func TestValidate_NoTransition(t *testing.T) {
	def := &domain.WorkflowDef{
		StartAt: "a",
		States: map[string]*domain.StateDef{
			"a": {Task: "t"},
		},
	}

	err := Validate(def)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if !errors.Is(vErr.Err, ErrNoTransition) {
		t.Errorf("expected ErrNoTransition, got %v", vErr.Err)
	}
}

func TestValidate_DanglingNext(t *testing.T) {
	def := &domain.WorkflowDef{
		StartAt: "a",
		States: map[string]*domain.StateDef{
			"a": {Task: "t", Next: "nonexistent"},
		},
	}

	err := Validate(def)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if !errors.Is(vErr.Err, ErrDanglingNext) {
		t.Errorf("expected ErrDanglingNext, got %v", vErr.Err)
	}
}

func TestValidate_InvalidSelector(t *testing.T) {
	tests := []struct {
		name  string
		state *domain.StateDef
		field string
	}{
		{
			name:  "input selector without root",
			state: &domain.StateDef{Task: "t", InputSelector: "detail", End: true},
			field: "input_selector",
		},
		{
			name:  "output selector with empty field",
			state: &domain.StateDef{Task: "t", OutputSelector: "$.", End: true},
			field: "output_selector",
		},
		{
			name:  "output selector with bad index",
			state: &domain.StateDef{Task: "t", OutputSelector: "$[x]", End: true},
			field: "output_selector",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := &domain.WorkflowDef{
				StartAt: "a",
				States:  map[string]*domain.StateDef{"a": tt.state},
			}

			err := Validate(def)
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, vErr.Field)
			}
		})
	}
}

func TestValidate_Cycle(t *testing.T) {
	tests := []struct {
		name   string
		states map[string]*domain.StateDef
	}{
		{
			name: "self loop",
			states: map[string]*domain.StateDef{
				"a": {Task: "t", Next: "a"},
			},
		},
		{
			name: "two-state cycle",
			states: map[string]*domain.StateDef{
				"a": {Task: "t", Next: "b"},
				"b": {Task: "t", Next: "a"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := &domain.WorkflowDef{StartAt: "a", States: tt.states}

			err := Validate(def)
			if !errors.Is(err, ErrCycleDetected) {
				t.Errorf("expected ErrCycleDetected, got %v", err)
			}
		})
	}
}

func TestValidate_UnreachableState(t *testing.T) {
	tests := []struct {
		name   string
		states map[string]*domain.StateDef
	}{
		{
			name: "state outside chain",
			states: map[string]*domain.StateDef{
				"a": {Task: "t", Next: "b"},
				"b": {Task: "t", End: true},
				"c": {Task: "t", Next: "b"},
			},
		},
		{
			// Цепочка заканчивается на первом терминале,
			// второй терминал оказывается вне цепочки
			name: "second terminal state",
			states: map[string]*domain.StateDef{
				"a": {Task: "t", End: true},
				"b": {Task: "t", End: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := &domain.WorkflowDef{StartAt: "a", States: tt.states}

			err := Validate(def)
			if !errors.Is(err, ErrUnreachableState) {
				t.Errorf("expected ErrUnreachableState, got %v", err)
			}
		})
	}
}

func TestValidate_ValidDefinition(t *testing.T) {
	tests := []struct {
		name string
		def  *domain.WorkflowDef
	}{
		{
			name: "single terminal state",
			def: &domain.WorkflowDef{
				StartAt: "only",
				States: map[string]*domain.StateDef{
					"only": {Task: "delay:1s", End: true},
				},
			},
		},
		{
			name: "three-state chain",
			def: &domain.WorkflowDef{
				StartAt: "extract",
				States: map[string]*domain.StateDef{
					"extract":  {Task: "transform:{{ json . }}", Next: "classify"},
					"classify": {Task: "http://classifier:8080/classify", Next: "store"},
					"store":    {Task: "http://store:8080/items", End: true},
				},
			},
		},
		{
			name: "with selectors",
			def: &domain.WorkflowDef{
				StartAt: "a",
				States: map[string]*domain.StateDef{
					"a": {Task: "t", InputSelector: "$.detail.object", Next: "b"},
					"b": {Task: "t", OutputSelector: "$.Payload", End: true},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.def); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}
