package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Sequenta/internal/payload"
)

// Schedule — расписание автоматического запуска workflow.
//
// Schedule позволяет запускать workflow:
// - По cron-выражению: "0 9 * * *" (каждый день в 9:00)
// - По интервалу: каждые N секунд
//
// Scheduler проверяет next_due_at и создаёт execution, когда время подошло.
// Каждое срабатывание — обычное триггерное событие: оно порождает
// независимый execution с сохранённым начальным payload.
type Schedule struct {
	// ID — уникальный идентификатор schedule.
	ID uuid.UUID `json:"id"`

	// WorkflowName — имя workflow, который нужно запускать.
	WorkflowName string `json:"workflow_name"`

	// Name — имя расписания для удобства.
	Name string `json:"name,omitempty"`

	// CronExpr — cron-выражение.
	// Формат: "минуты часы дни месяцы дни_недели"
	// Примеры:
	//   "0 9 * * *"     — каждый день в 9:00
	//   "*/5 * * * *"   — каждые 5 минут
	// Если задан CronExpr, IntervalSec игнорируется.
	CronExpr string `json:"cron_expr,omitempty"`

	// IntervalSec — интервал в секундах между запусками.
	// Используется если CronExpr не задан.
	IntervalSec int `json:"interval_sec,omitempty"`

	// Timezone — часовой пояс для вычисления времени.
	// По умолчанию: "UTC".
	Timezone string `json:"timezone"`

	// Enabled — флаг активности расписания.
	// Если false, scheduler игнорирует это расписание.
	Enabled bool `json:"enabled"`

	// InitialPayload — начальный payload для каждого созданного execution.
	InitialPayload payload.Value `json:"initial_payload,omitempty"`

	// NextDueAt — время следующего запуска.
	// Scheduler создаёт execution, когда now >= NextDueAt,
	// и затем вычисляет новое NextDueAt.
	NextDueAt *time.Time `json:"next_due_at,omitempty"`

	// LastFiredAt — время последнего срабатывания.
	LastFiredAt *time.Time `json:"last_fired_at,omitempty"`

	// LastExecutionID — ID последнего созданного execution.
	LastExecutionID *uuid.UUID `json:"last_execution_id,omitempty"`

	// CreatedAt — время создания schedule.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsCron возвращает true, если расписание использует cron-выражение.
func (s *Schedule) IsCron() bool {
	return s.CronExpr != ""
}

// IsInterval возвращает true, если расписание использует интервал.
func (s *Schedule) IsInterval() bool {
	return s.CronExpr == "" && s.IntervalSec > 0
}

// IsDue проверяет, пора ли запускать.
func (s *Schedule) IsDue(now time.Time) bool {
	if !s.Enabled {
		return false
	}
	if s.NextDueAt == nil {
		return false
	}
	return now.After(*s.NextDueAt) || now.Equal(*s.NextDueAt)
}

// RecordFired записывает информацию о срабатывании.
func (s *Schedule) RecordFired(executionID uuid.UUID, nextDue time.Time) {
	now := time.Now()
	s.LastFiredAt = &now
	s.LastExecutionID = &executionID
	s.NextDueAt = &nextDue
	s.UpdatedAt = now
}
