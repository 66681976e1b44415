package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики выполнения workflow. Регистрируются в реестре по умолчанию
// и экспортируются каждым сервисом через promhttp на /metrics.
var (
	// ExecutionsStarted — число запущенных выполнений.
	ExecutionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sequenta_executions_started_total",
		Help: "Workflow executions started",
	}, []string{"workflow"})

	// ExecutionsSucceeded — число успешно завершённых выполнений.
	ExecutionsSucceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sequenta_executions_succeeded_total",
		Help: "Workflow executions finished successfully",
	}, []string{"workflow"})

	// ExecutionsFailed — число выполнений, завершённых отказом.
	ExecutionsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sequenta_executions_failed_total",
		Help: "Workflow executions finished with failure",
	}, []string{"workflow"})

	// ExecutionDuration — длительность выполнения от старта до завершения.
	ExecutionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sequenta_execution_duration_seconds",
		Help:    "Duration of workflow executions",
		Buckets: prometheus.DefBuckets,
	}, []string{"workflow"})

	// StagesCompleted — число завершённых этапов по состояниям.
	StagesCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sequenta_stages_completed_total",
		Help: "Workflow stages completed",
	}, []string{"workflow", "state"})

	// TriggersReceived — число триггерных событий, принятых из MQ.
	TriggersReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sequenta_triggers_received_total",
		Help: "Trigger events consumed from the message queue",
	})
)
