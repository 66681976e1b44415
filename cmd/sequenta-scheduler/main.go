package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Sequenta/internal/mq"
	"github.com/shaiso/Sequenta/internal/repo"
	"github.com/shaiso/Sequenta/internal/scheduler"
	"github.com/shaiso/Sequenta/internal/telemetry"
)

const schedLockKey int64 = 424242

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting sequenta-scheduler")

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

	scheduleRepo := repo.NewScheduleRepo(pool)
	executionRepo := repo.NewExecutionRepo(pool)
	workflowRepo := repo.NewWorkflowRepo(pool)

	// RabbitMQ: опционально, без него conductor подхватывает executions поллингом
	var publisher *mq.Publisher
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")
		publisher = mq.NewPublisher(mqConn, logger)
	}

	sched := scheduler.New(scheduler.Config{
		ScheduleRepo:  scheduleRepo,
		ExecutionRepo: executionRepo,
		WorkflowRepo:  workflowRepo,
		Publisher:     publisher,
		Logger:        logger,
	})

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// scheduler loop
	go func() {
		tk := time.NewTicker(1 * time.Second)
		defer tk.Stop()

		// Advisory lock живёт на уровне сессии, поэтому лидер держит
		// выделенное соединение из пула на всё время лидерства.
		var lockConn *pgxpool.Conn
		defer func() {
			if lockConn != nil {
				_, _ = lockConn.Exec(context.Background(), "select pg_advisory_unlock($1)", schedLockKey)
				lockConn.Release()
			}
		}()

		for {
			select {
			case <-tk.C:
				// пытаемся стать лидером
				if lockConn == nil {
					conn, err := pool.Acquire(ctx)
					if err != nil {
						logger.Error("failed to acquire connection", "error", err)
						continue
					}

					var ok bool
					if err := conn.QueryRow(ctx, "select pg_try_advisory_lock($1)", schedLockKey).Scan(&ok); err != nil {
						logger.Error("leader lock error", "error", err)
						conn.Release()
						continue
					}
					if !ok {
						// не лидер — пропускаем тик
						conn.Release()
						continue
					}

					lockConn = conn
					logger.Info("became scheduler leader")
				}

				// лидер выполняет тик
				if err := sched.Tick(ctx); err != nil {
					logger.Error("scheduler tick failed", "error", err)
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	// serve
	port := ":8081"
	if v := os.Getenv("SCHED_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("sequenta-scheduler stopped")
}
