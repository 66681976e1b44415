package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/Sequenta/internal/domain"
)

func TestBuildChain_Order(t *testing.T) {
	def := &domain.WorkflowDef{
		StartAt: "extract",
		States: map[string]*domain.StateDef{
			"store":    {Task: "t", End: true},
			"extract":  {Task: "t", Next: "classify"},
			"classify": {Task: "t", Next: "store"},
		},
	}

	chain, err := BuildChain(def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{"extract", "classify", "store"}
	if len(chain) != len(expected) {
		t.Fatalf("expected chain of %d, got %d", len(expected), len(chain))
	}
	for i, name := range expected {
		if chain[i] != name {
			t.Errorf("position %d: expected %s, got %s", i, name, chain[i])
		}
	}
}

func TestBuildChain_SingleState(t *testing.T) {
	def := &domain.WorkflowDef{
		StartAt: "only",
		States: map[string]*domain.StateDef{
			"only": {Task: "t", End: true},
		},
	}

	chain, err := BuildChain(def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chain) != 1 || chain[0] != "only" {
		t.Errorf("expected [only], got %v", chain)
	}
}

func TestBuildChain_Cycle(t *testing.T) {
	def := &domain.WorkflowDef{
		StartAt: "a",
		States: map[string]*domain.StateDef{
			"a": {Task: "t", Next: "b"},
			"b": {Task: "t", Next: "a"},
		},
	}

	_, err := BuildChain(def)
	if !errors.Is(err, ErrCycleDetected) {
		t.Errorf("expected ErrCycleDetected, got %v", err)
	}
}

func TestBuildChain_DanglingNext(t *testing.T) {
	def := &domain.WorkflowDef{
		StartAt: "a",
		States: map[string]*domain.StateDef{
			"a": {Task: "t", Next: "ghost"},
		},
	}

	_, err := BuildChain(def)
	if !errors.Is(err, ErrDanglingNext) {
		t.Errorf("expected ErrDanglingNext, got %v", err)
	}
}

func TestBuildChain_Unreachable(t *testing.T) {
	def := &domain.WorkflowDef{
		StartAt: "a",
		States: map[string]*domain.StateDef{
			"a":      {Task: "t", End: true},
			"orphan": {Task: "t", End: true},
		},
	}

	_, err := BuildChain(def)
	if !errors.Is(err, ErrUnreachableState) {
		t.Errorf("expected ErrUnreachableState, got %v", err)
	}
}
