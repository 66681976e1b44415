// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog (LOG_LEVEL / LOG_FORMAT)
//   - metrics.go — Prometheus метрики выполнения workflow
//
// Метрики: sequenta_executions_{started,succeeded,failed}_total,
// sequenta_execution_duration_seconds, sequenta_stages_completed_total,
// sequenta_triggers_received_total. Все сервисы используют единый формат
// логирования и экспортируют метрики на /metrics endpoint.
package telemetry
