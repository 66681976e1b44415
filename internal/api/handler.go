package api

import (
	"log/slog"

	"github.com/shaiso/Sequenta/internal/mq"
	"github.com/shaiso/Sequenta/internal/repo"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	workflowRepo  *repo.WorkflowRepo
	executionRepo *repo.ExecutionRepo
	scheduleRepo  *repo.ScheduleRepo
	publisher     *mq.Publisher
	logger        *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	WorkflowRepo  *repo.WorkflowRepo
	ExecutionRepo *repo.ExecutionRepo
	ScheduleRepo  *repo.ScheduleRepo
	Publisher     *mq.Publisher
	Logger        *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		workflowRepo:  cfg.WorkflowRepo,
		executionRepo: cfg.ExecutionRepo,
		scheduleRepo:  cfg.ScheduleRepo,
		publisher:     cfg.Publisher,
		logger:        cfg.Logger,
	}
}
