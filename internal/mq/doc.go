// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - object.created      — в хранилище появился новый объект (триггер workflow)
//   - execution.requested — запрошен запуск выполнения
//   - execution.succeeded — выполнение завершилось успешно
//   - execution.failed    — выполнение завершилось с ошибкой
//
// Exchanges:
//   - sequenta.triggers   — триггерные события (ключ маршрутизации = тип триггера)
//   - sequenta.executions — жизненный цикл выполнений
//   - sequenta.dlq        — dead letter queue
package mq
