// Sequenta Conductor — выполняет executions.
//
// Conductor:
//   - Получает триггерные события и запросы на выполнение из RabbitMQ
//   - Поднимает определение workflow и прогоняет execution по цепочке
//     состояний, вызывая задачи через Task Invoker
//   - Сохраняет прогресс в БД после каждого этапа
//   - Публикует терминальные события execution.succeeded / failed
//
// При недоступном RabbitMQ работает в режиме поллинга PENDING executions.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Sequenta/internal/conductor"
	"github.com/shaiso/Sequenta/internal/mq"
	"github.com/shaiso/Sequenta/internal/repo"
	"github.com/shaiso/Sequenta/internal/task"
	"github.com/shaiso/Sequenta/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting sequenta-conductor")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Создаём репозитории
	executionRepo := repo.NewExecutionRepo(pool)
	workflowRepo := repo.NewWorkflowRepo(pool)

	// RabbitMQ
	var publisher *mq.Publisher
	var mqConn *mq.Connection
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err = mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		// Создаём топологию
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(mqConn, logger)
	}

	// Создаём conductor со стандартным набором инвокеров
	cond := conductor.New(conductor.Config{
		ExecutionRepo: executionRepo,
		WorkflowRepo:  workflowRepo,
		Publisher:     publisher,
		Conn:          mqConn,
		Invoker:       task.DefaultRegistry(),
		Logger:        logger,
	})

	// Запускаем conductor
	if err := cond.Start(ctx); err != nil {
		logger.Error("failed to start conductor", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8083"
	if v := os.Getenv("CONDUCTOR_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем conductor
	cond.Stop()
	logger.Info("sequenta-conductor stopped")
}
