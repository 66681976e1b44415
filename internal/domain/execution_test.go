package domain

import (
	"testing"

	"github.com/shaiso/Sequenta/internal/payload"
)

func TestExecution_Lifecycle(t *testing.T) {
	initial := payload.MustDecode(`{"id": "img1"}`)
	exec := NewExecution("waste-classification", 1, "classify", initial)

	if exec.Status != ExecutionStatusPending {
		t.Errorf("new execution should be PENDING, got %s", exec.Status)
	}
	if exec.CurrentState != "classify" {
		t.Errorf("expected current state classify, got %s", exec.CurrentState)
	}

	exec.MarkRunning()
	if exec.Status != ExecutionStatusRunning {
		t.Errorf("expected RUNNING, got %s", exec.Status)
	}
	if exec.StartedAt == nil {
		t.Error("StartedAt should be set")
	}

	final := payload.MustDecode(`{"id": "img1", "classification": "recycle"}`)
	exec.MarkSucceeded(final)
	if exec.Status != ExecutionStatusSucceeded {
		t.Errorf("expected SUCCEEDED, got %s", exec.Status)
	}
	if !payload.Equal(exec.CurrentPayload, final) {
		t.Error("final payload should be stored")
	}
	if exec.FinishedAt == nil {
		t.Error("FinishedAt should be set")
	}
	if exec.Duration() < 0 {
		t.Error("duration should not be negative")
	}
}

func TestExecution_StatusSetOnce(t *testing.T) {
	exec := NewExecution("waste-classification", 1, "classify", nil)
	exec.MarkRunning()

	exec.MarkFailed("task failed: classifier unavailable")
	if exec.Status != ExecutionStatusFailed {
		t.Fatalf("expected FAILED, got %s", exec.Status)
	}

	// Терминальный статус не перезаписывается
	exec.MarkSucceeded(payload.MustDecode(`{}`))
	if exec.Status != ExecutionStatusFailed {
		t.Errorf("terminal status must not change, got %s", exec.Status)
	}
	if exec.FailureReason != "task failed: classifier unavailable" {
		t.Errorf("failure reason must be preserved, got %s", exec.FailureReason)
	}

	exec.MarkRunning()
	if exec.Status != ExecutionStatusFailed {
		t.Errorf("terminal execution must not restart, got %s", exec.Status)
	}
}

func TestExecution_AppendHistory(t *testing.T) {
	exec := NewExecution("waste-classification", 1, "A", payload.MustDecode(`{"id": "img1"}`))

	exec.AppendHistory("A", payload.MustDecode(`{"id": "img1"}`), payload.MustDecode(`{"id": "img1", "step": "A"}`))
	exec.AppendHistory("B", payload.MustDecode(`{"id": "img1", "step": "A"}`), nil)

	if len(exec.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(exec.History))
	}
	if exec.History[0].Seq != 1 || exec.History[1].Seq != 2 {
		t.Error("history entries should be numbered from 1")
	}
	if exec.History[1].StateName != "B" {
		t.Errorf("expected state B, got %s", exec.History[1].StateName)
	}
	if exec.History[1].Output != nil {
		t.Error("failed stage should have nil output")
	}
}

func TestExecutionStatus_IsTerminal(t *testing.T) {
	if ExecutionStatusPending.IsTerminal() || ExecutionStatusRunning.IsTerminal() {
		t.Error("PENDING and RUNNING are not terminal")
	}
	if !ExecutionStatusSucceeded.IsTerminal() || !ExecutionStatusFailed.IsTerminal() {
		t.Error("SUCCEEDED and FAILED are terminal")
	}
}

func TestParseExecutionStatus(t *testing.T) {
	status, ok := ParseExecutionStatus("RUNNING")
	if !ok || status != ExecutionStatusRunning {
		t.Errorf("expected RUNNING, got %s (%v)", status, ok)
	}

	if _, ok := ParseExecutionStatus("banana"); ok {
		t.Error("unknown status should not parse")
	}
}
