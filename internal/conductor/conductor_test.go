package conductor

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNew(t *testing.T) {
	c := New(Config{})

	if c.active == nil {
		t.Error("active map should be initialized")
	}
	if c.engine == nil {
		t.Error("engine should be initialized")
	}
	if c.pollInterval != defaultPollInterval {
		t.Errorf("expected default poll interval %v, got %v", defaultPollInterval, c.pollInterval)
	}
	if c.batchSize != defaultBatchSize {
		t.Errorf("expected default batch size %d, got %d", defaultBatchSize, c.batchSize)
	}
	if cap(c.sem) != defaultMaxConcurrent {
		t.Errorf("expected default max concurrent %d, got %d", defaultMaxConcurrent, cap(c.sem))
	}
}

func TestNew_CustomConfig(t *testing.T) {
	c := New(Config{
		PollInterval:  5 * time.Second,
		BatchSize:     50,
		MaxConcurrent: 4,
	})

	if c.pollInterval != 5*time.Second {
		t.Errorf("expected poll interval 5s, got %v", c.pollInterval)
	}
	if c.batchSize != 50 {
		t.Errorf("expected batch size 50, got %d", c.batchSize)
	}
	if cap(c.sem) != 4 {
		t.Errorf("expected max concurrent 4, got %d", cap(c.sem))
	}
}

func TestConductor_ActiveExecutions(t *testing.T) {
	c := New(Config{})

	id := uuid.New()

	// Initially no active executions
	if c.ActiveExecutionsCount() != 0 {
		t.Error("should have no active executions initially")
	}
	if c.isExecutionActive(id) {
		t.Error("execution should not be active initially")
	}

	// Claim execution
	if !c.claimExecution(id) {
		t.Fatal("claim should succeed for new execution")
	}

	if c.ActiveExecutionsCount() != 1 {
		t.Error("should have 1 active execution")
	}
	if !c.isExecutionActive(id) {
		t.Error("execution should be active")
	}

	// Try to claim same execution again
	if c.claimExecution(id) {
		t.Error("claim should fail for already active execution")
	}

	// Release execution
	c.releaseExecution(id)

	if c.ActiveExecutionsCount() != 0 {
		t.Error("should have no active executions after release")
	}
	if c.isExecutionActive(id) {
		t.Error("execution should not be active after release")
	}

	// After release execution can be claimed again
	if !c.claimExecution(id) {
		t.Error("claim should succeed after release")
	}
}

func TestConductor_IsStopped(t *testing.T) {
	c := New(Config{})

	if c.IsStopped() {
		t.Error("should not be stopped initially")
	}

	// Set stopped state directly (simulating Stop() call)
	c.stoppedMu.Lock()
	c.stopped = true
	c.stoppedMu.Unlock()

	if !c.IsStopped() {
		t.Error("should be stopped")
	}
}

func TestConductor_StopWithoutStart(t *testing.T) {
	c := New(Config{})

	// Stop до Start не должен паниковать
	c.Stop()

	if !c.IsStopped() {
		t.Error("should be stopped after Stop")
	}
}
