package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Sequenta/internal/domain"
	"github.com/shaiso/Sequenta/internal/payload"
)

// Workflow DTOs

// WorkflowResponse — ответ с workflow.
type WorkflowResponse struct {
	ID         uuid.UUID          `json:"id"`
	Name       string             `json:"name"`
	Version    int                `json:"version"`
	Definition domain.WorkflowDef `json:"definition"`
	CreatedAt  time.Time          `json:"created_at"`
}

// WorkflowFromDomain конвертирует domain.Workflow в WorkflowResponse.
func WorkflowFromDomain(w domain.Workflow) WorkflowResponse {
	return WorkflowResponse{
		ID:         w.ID,
		Name:       w.Name,
		Version:    w.Version,
		Definition: w.Definition,
		CreatedAt:  w.CreatedAt,
	}
}

// ValidateResponse — результат валидации определения workflow.
type ValidateResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// Execution DTOs

// StartExecutionRequest — запрос на запуск execution.
type StartExecutionRequest struct {
	// Input — начальный payload execution. Может быть любым JSON-значением.
	Input payload.Value `json:"input,omitempty"`

	// Version — конкретная версия workflow. По умолчанию — последняя.
	Version *int `json:"version,omitempty"`
}

// ExecutionResponse — ответ с execution.
type ExecutionResponse struct {
	ID              uuid.UUID             `json:"id"`
	WorkflowName    string                `json:"workflow_name"`
	WorkflowVersion int                   `json:"workflow_version"`
	Status          string                `json:"status"`
	CurrentState    string                `json:"current_state"`
	CurrentPayload  payload.Value         `json:"current_payload,omitempty"`
	FailureReason   string                `json:"failure_reason,omitempty"`
	History         []domain.HistoryEntry `json:"history,omitempty"`
	StartedAt       *time.Time            `json:"started_at,omitempty"`
	FinishedAt      *time.Time            `json:"finished_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}

// ExecutionFromDomain конвертирует domain.Execution в ExecutionResponse.
func ExecutionFromDomain(e domain.Execution) ExecutionResponse {
	return ExecutionResponse{
		ID:              e.ID,
		WorkflowName:    e.WorkflowName,
		WorkflowVersion: e.WorkflowVersion,
		Status:          string(e.Status),
		CurrentState:    e.CurrentState,
		CurrentPayload:  e.CurrentPayload,
		FailureReason:   e.FailureReason,
		History:         e.History,
		StartedAt:       e.StartedAt,
		FinishedAt:      e.FinishedAt,
		CreatedAt:       e.CreatedAt,
	}
}

// Schedule DTOs

// CreateScheduleRequest — запрос на создание schedule.
type CreateScheduleRequest struct {
	Name           string        `json:"name"`
	CronExpr       string        `json:"cron_expr,omitempty"`
	IntervalSec    int           `json:"interval_sec,omitempty"`
	Timezone       string        `json:"timezone,omitempty"`
	Enabled        bool          `json:"enabled"`
	InitialPayload payload.Value `json:"initial_payload,omitempty"`
}

// UpdateScheduleRequest — запрос на обновление schedule.
type UpdateScheduleRequest struct {
	Name           *string        `json:"name,omitempty"`
	CronExpr       *string        `json:"cron_expr,omitempty"`
	IntervalSec    *int           `json:"interval_sec,omitempty"`
	Timezone       *string        `json:"timezone,omitempty"`
	InitialPayload *payload.Value `json:"initial_payload,omitempty"`
}

// SetEnabledRequest — запрос на включение/выключение.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// ScheduleResponse — ответ с schedule.
type ScheduleResponse struct {
	ID              uuid.UUID     `json:"id"`
	WorkflowName    string        `json:"workflow_name"`
	Name            string        `json:"name,omitempty"`
	CronExpr        string        `json:"cron_expr,omitempty"`
	IntervalSec     int           `json:"interval_sec,omitempty"`
	Timezone        string        `json:"timezone"`
	Enabled         bool          `json:"enabled"`
	NextDueAt       *time.Time    `json:"next_due_at,omitempty"`
	LastFiredAt     *time.Time    `json:"last_fired_at,omitempty"`
	LastExecutionID *uuid.UUID    `json:"last_execution_id,omitempty"`
	InitialPayload  payload.Value `json:"initial_payload,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// ScheduleFromDomain конвертирует domain.Schedule в ScheduleResponse.
func ScheduleFromDomain(s *domain.Schedule) ScheduleResponse {
	if s == nil {
		return ScheduleResponse{}
	}
	return ScheduleResponse{
		ID:              s.ID,
		WorkflowName:    s.WorkflowName,
		Name:            s.Name,
		CronExpr:        s.CronExpr,
		IntervalSec:     s.IntervalSec,
		Timezone:        s.Timezone,
		Enabled:         s.Enabled,
		NextDueAt:       s.NextDueAt,
		LastFiredAt:     s.LastFiredAt,
		LastExecutionID: s.LastExecutionID,
		InitialPayload:  s.InitialPayload,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}
