package engine

import "github.com/shaiso/Sequenta/internal/payload"

// Phase — фаза конечного автомата выполнения.
type Phase string

const (
	// PhaseRunning — автомат выполняет очередное состояние workflow.
	PhaseRunning Phase = "RUNNING"

	// PhaseSucceeded — все этапы завершены, есть финальный payload.
	PhaseSucceeded Phase = "SUCCEEDED"

	// PhaseFailed — выполнение остановлено отказом.
	PhaseFailed Phase = "FAILED"
)

// MachineState — состояние конечного автомата одного выполнения.
//
// Размеченное объединение с тремя вариантами:
//
//	Running(stateName, payload) — активны StateName и Payload
//	Succeeded(final)            — активен Payload
//	Failed(reason)              — активен Reason
//
// Переходы выполняет Engine.Step; из терминальных фаз переходов нет.
type MachineState struct {
	// Phase — активный вариант.
	Phase Phase

	// StateName — имя текущего состояния workflow (для PhaseRunning).
	StateName string

	// Payload — текущий (Running) или финальный (Succeeded) payload.
	Payload payload.Value

	// Reason — причина отказа (для PhaseFailed).
	Reason string
}

// Running создаёт состояние автомата "выполняется".
func Running(stateName string, p payload.Value) MachineState {
	return MachineState{Phase: PhaseRunning, StateName: stateName, Payload: p}
}

// Succeeded создаёт терминальное состояние "успех".
func Succeeded(final payload.Value) MachineState {
	return MachineState{Phase: PhaseSucceeded, Payload: final}
}

// Failed создаёт терминальное состояние "отказ".
func Failed(reason string) MachineState {
	return MachineState{Phase: PhaseFailed, Reason: reason}
}

// IsTerminal возвращает true для Succeeded и Failed.
func (s MachineState) IsTerminal() bool {
	return s.Phase == PhaseSucceeded || s.Phase == PhaseFailed
}
