package scheduler

import (
	"testing"
	"time"

	"github.com/shaiso/Sequenta/internal/domain"
)

func TestCalculateNextDue_Interval(t *testing.T) {
	sched := &domain.Schedule{
		IntervalSec: 300,
		Timezone:    "UTC",
	}

	from := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := from.Add(5 * time.Minute)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestCalculateNextDue_Cron(t *testing.T) {
	sched := &domain.Schedule{
		CronExpr: "0 * * * *", // каждый час
		Timezone: "UTC",
	}

	from := time.Date(2026, 3, 10, 12, 34, 56, 0, time.UTC)

	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestCalculateNextDue_CronPrecedence(t *testing.T) {
	// Если заданы и cron, и interval — используется cron
	sched := &domain.Schedule{
		CronExpr:    "30 * * * *",
		IntervalSec: 10,
		Timezone:    "UTC",
	}

	from := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2026, 3, 10, 12, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestCalculateNextDue_InvalidTimezone(t *testing.T) {
	// Невалидный timezone не ломает расчёт — fallback на UTC
	sched := &domain.Schedule{
		IntervalSec: 60,
		Timezone:    "Not/AZone",
	}

	from := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := from.Add(time.Minute)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestCalculateNextDue_InvalidCron(t *testing.T) {
	sched := &domain.Schedule{
		CronExpr: "not a cron",
		Timezone: "UTC",
	}

	_, err := CalculateNextDue(sched, time.Now())
	if err == nil {
		t.Error("expected error for invalid cron expression")
	}
}

func TestCalculateNextDue_Neither(t *testing.T) {
	sched := &domain.Schedule{Timezone: "UTC"}

	_, err := CalculateNextDue(sched, time.Now())
	if err == nil {
		t.Error("expected error for schedule without cron_expr and interval_sec")
	}
}

func TestValidateCronExpr(t *testing.T) {
	valid := []string{
		"* * * * *",
		"0 * * * *",
		"*/5 * * * *",
		"0 9 * * 1-5",
		"30 3 1 * *",
	}
	for _, expr := range valid {
		if err := ValidateCronExpr(expr); err != nil {
			t.Errorf("expected %q to be valid, got %v", expr, err)
		}
	}

	invalid := []string{
		"",
		"not a cron",
		"60 * * * *",
		"* * * *", // мало полей
	}
	for _, expr := range invalid {
		if err := ValidateCronExpr(expr); err == nil {
			t.Errorf("expected %q to be invalid", expr)
		}
	}
}
