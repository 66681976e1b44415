package conductor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Sequenta/internal/engine"
	"github.com/shaiso/Sequenta/internal/mq"
	"github.com/shaiso/Sequenta/internal/repo"
	"github.com/shaiso/Sequenta/internal/task"
)

// Default configuration values.
const (
	defaultPollInterval  = 10 * time.Second
	defaultBatchSize     = 100
	defaultMaxConcurrent = 32
)

// Conductor управляет выполнением executions.
//
// Conductor — центральный компонент системы, который:
//   - Получает триггерные события из очереди RabbitMQ и создаёт executions
//     для привязанных workflow
//   - Получает запросы на запуск (execution.requested) из очереди
//   - Периодически проверяет pending executions в БД (polling fallback)
//   - Прогоняет каждое execution через engine в отдельной горутине
//     (не больше maxConcurrent одновременно)
//   - Сохраняет прогресс и историю после каждого этапа
//   - Публикует терминальные события (execution.succeeded / execution.failed)
type Conductor struct {
	// Repositories
	executionRepo *repo.ExecutionRepo
	workflowRepo  *repo.WorkflowRepo

	// MQ
	publisher *mq.Publisher
	conn      *mq.Connection

	// Engine
	engine *engine.Engine

	// Active executions — выполнения в процессе (executionID → true)
	active map[uuid.UUID]bool
	mu     sync.RWMutex

	// Semaphore, ограничивающий число одновременных выполнений
	sem chan struct{}

	// Consumers
	triggerConsumer *mq.Consumer
	requestConsumer *mq.Consumer

	// Configuration
	pollInterval time.Duration
	batchSize    int

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Conductor.
type Config struct {
	// Repositories
	ExecutionRepo *repo.ExecutionRepo
	WorkflowRepo  *repo.WorkflowRepo

	// MQ. Conn может быть nil — тогда Conductor работает только через polling.
	Publisher *mq.Publisher
	Conn      *mq.Connection

	// Invoker — вызов внешних задач (default: task.DefaultRegistry()).
	Invoker task.Invoker

	// Polling configuration
	PollInterval time.Duration // интервал polling (default: 10s)
	BatchSize    int           // количество executions за один poll (default: 100)

	// MaxConcurrent — максимум одновременных выполнений (default: 32).
	MaxConcurrent int

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Conductor.
func New(cfg Config) *Conductor {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Conductor{
		executionRepo: cfg.ExecutionRepo,
		workflowRepo:  cfg.WorkflowRepo,
		publisher:     cfg.Publisher,
		conn:          cfg.Conn,
		engine:        engine.New(engine.Config{Invoker: cfg.Invoker, Logger: logger}),
		active:        make(map[uuid.UUID]bool),
		sem:           make(chan struct{}, maxConcurrent),
		pollInterval:  pollInterval,
		batchSize:     batchSize,
		logger:        logger,
	}
}

// Start запускает Conductor.
//
// Запускает:
//   - Consumer для triggers.object.created
//   - Consumer для executions.requested
//   - Polling горутину для fallback
func (c *Conductor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel

	c.logger.Info("starting conductor",
		"poll_interval", c.pollInterval,
		"batch_size", c.batchSize,
		"max_concurrent", cap(c.sem),
	)

	if c.conn != nil {
		c.triggerConsumer = mq.NewConsumer(c.conn, c.logger, mq.ConsumerConfig{
			Name:     "conductor.triggers",
			Queue:    string(mq.QueueTriggersObjectCreated),
			Handler:  c.handleTrigger,
			Prefetch: 10,
		})

		c.requestConsumer = mq.NewConsumer(c.conn, c.logger, mq.ConsumerConfig{
			Name:     "conductor.requests",
			Queue:    string(mq.QueueExecutionsRequested),
			Handler:  c.handleExecutionRequested,
			Prefetch: 10,
		})

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := c.triggerConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Error("trigger consumer error", "error", err)
			}
		}()

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := c.requestConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Error("request consumer error", "error", err)
			}
		}()
	} else {
		c.logger.Warn("mq connection not available, running in polling mode")
	}

	// Запускаем polling
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.pollLoop(ctx)
	}()

	c.logger.Info("conductor started")
	return nil
}

// Stop останавливает Conductor.
func (c *Conductor) Stop() {
	c.stoppedMu.Lock()
	c.stopped = true
	c.stoppedMu.Unlock()

	c.logger.Info("stopping conductor...")

	if c.cancelFunc != nil {
		c.cancelFunc()
	}

	// Останавливаем consumers
	if c.triggerConsumer != nil {
		c.triggerConsumer.Stop()
	}
	if c.requestConsumer != nil {
		c.requestConsumer.Stop()
	}

	// Ждём завершения горутин
	c.wg.Wait()

	c.logger.Info("conductor stopped",
		"active_executions", len(c.active),
	)
}

// IsStopped проверяет, остановлен ли Conductor.
func (c *Conductor) IsStopped() bool {
	c.stoppedMu.RLock()
	defer c.stoppedMu.RUnlock()
	return c.stopped
}

// pollLoop — цикл polling для fallback.
func (c *Conductor) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте (подхватываем executions,
	// созданные пока conductor был выключен)
	c.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling.
func (c *Conductor) poll(ctx context.Context) {
	executions, err := c.executionRepo.ListPending(ctx, c.batchSize)
	if err != nil {
		c.logger.Error("failed to list pending executions", "error", err)
		return
	}

	if len(executions) == 0 {
		return
	}

	c.logger.Debug("poll found pending executions", "count", len(executions))

	for i := range executions {
		exec := &executions[i]

		if c.isExecutionActive(exec.ID) {
			continue
		}

		if err := c.processExecution(ctx, exec.ID); err != nil {
			if errors.Is(err, ErrExecutionNotPending) || errors.Is(err, ErrExecutionAlreadyActive) {
				continue
			}
			c.logger.Error("failed to process execution from poll",
				"execution_id", exec.ID,
				"error", err,
			)
		}
	}
}

// isExecutionActive проверяет, обрабатывается ли execution.
func (c *Conductor) isExecutionActive(id uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active[id]
}

// claimExecution добавляет execution в активные.
// Возвращает false, если execution уже обрабатывается.
func (c *Conductor) claimExecution(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active[id] {
		return false
	}

	c.active[id] = true
	return true
}

// releaseExecution удаляет execution из активных.
func (c *Conductor) releaseExecution(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, id)
}

// ActiveExecutionsCount возвращает количество активных executions.
func (c *Conductor) ActiveExecutionsCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.active)
}
