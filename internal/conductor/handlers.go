package conductor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Sequenta/internal/domain"
	"github.com/shaiso/Sequenta/internal/engine"
	"github.com/shaiso/Sequenta/internal/mq"
	"github.com/shaiso/Sequenta/internal/payload"
	"github.com/shaiso/Sequenta/internal/repo"
	"github.com/shaiso/Sequenta/internal/telemetry"
)

// handleTrigger обрабатывает триггерное событие.
// Тип сообщения — это тип триггера из определения workflow; для каждого
// workflow последней версии, привязанного к этому триггеру, создаётся
// отдельное execution с событием в качестве начального payload.
func (c *Conductor) handleTrigger(ctx context.Context, delivery *mq.Delivery) error {
	msg := &delivery.Message
	triggerType := string(msg.Type)

	c.logger.Debug("received trigger event",
		"trigger", triggerType,
		"message_id", msg.ID,
	)

	telemetry.TriggersReceived.Inc()

	workflows, err := c.workflowRepo.ListByTrigger(ctx, triggerType)
	if err != nil {
		c.logger.Error("failed to list workflows for trigger", "trigger", triggerType, "error", err)
		return err
	}

	if len(workflows) == 0 {
		c.logger.Debug("no workflows bound to trigger", "trigger", triggerType)
		return nil
	}

	for i := range workflows {
		wf := &workflows[i]

		// Каждое execution получает собственную копию события
		exec := domain.NewExecution(wf.Name, wf.Version, wf.Definition.StartAt, payload.Clone(msg.Payload))

		if err := c.executionRepo.Create(ctx, exec); err != nil {
			c.logger.Error("failed to create execution",
				"workflow", wf.Name,
				"trigger", triggerType,
				"error", err,
			)
			// Продолжаем с другими workflow
			continue
		}

		c.logger.Info("execution created from trigger",
			"execution_id", exec.ID,
			"workflow", wf.Name,
			"version", wf.Version,
			"trigger", triggerType,
		)

		if err := c.processExecution(ctx, exec.ID); err != nil {
			if errors.Is(err, ErrExecutionNotPending) || errors.Is(err, ErrExecutionAlreadyActive) {
				continue
			}
			c.logger.Error("failed to process execution",
				"execution_id", exec.ID,
				"error", err,
			)
		}
	}

	return nil
}

// handleExecutionRequested обрабатывает запрос на запуск выполнения.
func (c *Conductor) handleExecutionRequested(ctx context.Context, delivery *mq.Delivery) error {
	p, err := mq.ParsePayload[mq.ExecutionRequestedPayload](&delivery.Message)
	if err != nil {
		c.logger.Error("failed to parse execution.requested payload", "error", err)
		return err
	}

	c.logger.Debug("received execution.requested event", "execution_id", p.ExecutionID)

	if err := c.processExecution(ctx, p.ExecutionID); err != nil {
		// Ожидаемые ситуации — не возвращаем ошибку (ack)
		if errors.Is(err, ErrExecutionNotPending) || errors.Is(err, ErrExecutionAlreadyActive) {
			c.logger.Debug("execution not processed", "execution_id", p.ExecutionID, "reason", err)
			return nil
		}
		c.logger.Error("failed to process execution", "execution_id", p.ExecutionID, "error", err)
		return err
	}

	return nil
}

// processExecution берёт pending execution в работу.
func (c *Conductor) processExecution(ctx context.Context, executionID uuid.UUID) error {
	// 1. Загружаем execution из БД
	exec, err := c.executionRepo.GetByID(ctx, executionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrExecutionNotFound, executionID)
		}
		return fmt.Errorf("get execution: %w", err)
	}

	// 2. Проверяем статус
	if exec.Status != domain.ExecutionStatusPending {
		return ErrExecutionNotPending
	}

	// 3. Загружаем закреплённую версию определения
	wf, err := c.workflowRepo.GetVersion(ctx, exec.WorkflowName, exec.WorkflowVersion)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return c.failExecution(ctx, exec,
				fmt.Sprintf("workflow version not found: %s v%d", exec.WorkflowName, exec.WorkflowVersion))
		}
		return fmt.Errorf("get workflow version: %w", err)
	}

	// 4. Валидируем определение перед запуском
	if err := engine.Validate(&wf.Definition); err != nil {
		return c.failExecution(ctx, exec, fmt.Sprintf("definition invalid: %v", err))
	}

	// 5. Добавляем в активные
	if !c.claimExecution(exec.ID) {
		return ErrExecutionAlreadyActive
	}

	// 6. Запускаем в отдельной горутине
	c.launchExecution(ctx, wf, exec)

	return nil
}

// launchExecution запускает выполнение в горутине под семафором.
// Claim уже должен быть взят вызывающей стороной.
func (c *Conductor) launchExecution(ctx context.Context, wf *domain.Workflow, exec *domain.Execution) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.releaseExecution(exec.ID)

		select {
		case c.sem <- struct{}{}:
		case <-ctx.Done():
			// Execution остаётся PENDING — подхватится после рестарта
			return
		}
		defer func() { <-c.sem }()

		c.driveExecution(ctx, wf, exec)
	}()
}

// driveExecution прогоняет execution через engine до терминального
// состояния, сохраняя прогресс после каждого этапа.
func (c *Conductor) driveExecution(ctx context.Context, wf *domain.Workflow, exec *domain.Execution) {
	logger := c.logger.With("execution_id", exec.ID, "workflow", exec.WorkflowName)

	exec.MarkRunning()
	if err := c.executionRepo.Update(ctx, exec); err != nil {
		logger.Error("failed to update execution to running", "error", err)
		// В БД execution остался PENDING — следующий poll попробует снова
		return
	}

	telemetry.ExecutionsStarted.WithLabelValues(exec.WorkflowName).Inc()
	logger.Info("execution started", "version", exec.WorkflowVersion)

	st := engine.Running(exec.CurrentState, exec.CurrentPayload)
	for st.Phase == engine.PhaseRunning {
		seen := len(exec.History)
		st = c.engine.Step(ctx, &wf.Definition, st, exec)

		entries := exec.History[seen:]
		c.persistProgress(ctx, exec, entries, logger)

		if st.Phase != engine.PhaseFailed {
			for _, entry := range entries {
				telemetry.StagesCompleted.WithLabelValues(exec.WorkflowName, entry.StateName).Inc()
			}
		}
	}

	switch st.Phase {
	case engine.PhaseSucceeded:
		telemetry.ExecutionsSucceeded.WithLabelValues(exec.WorkflowName).Inc()
		telemetry.ExecutionDuration.WithLabelValues(exec.WorkflowName).Observe(exec.Duration().Seconds())
		logger.Info("execution succeeded",
			"stages", len(exec.History),
			"duration", exec.Duration(),
		)

	case engine.PhaseFailed:
		telemetry.ExecutionsFailed.WithLabelValues(exec.WorkflowName).Inc()
		telemetry.ExecutionDuration.WithLabelValues(exec.WorkflowName).Observe(exec.Duration().Seconds())
		logger.Warn("execution failed",
			"reason", st.Reason,
			"duration", exec.Duration(),
		)
	}

	c.publishCompletion(ctx, exec, st)
}

// persistProgress сохраняет новые записи истории и текущее состояние execution.
// Прогресс сохраняется и при отменённом контексте — иначе отменённое
// выполнение навсегда осталось бы RUNNING в БД.
func (c *Conductor) persistProgress(ctx context.Context, exec *domain.Execution, entries []domain.HistoryEntry, logger *slog.Logger) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	for _, entry := range entries {
		if err := c.executionRepo.AppendHistory(pctx, exec.ID, entry); err != nil {
			logger.Error("failed to append history", "seq", entry.Seq, "error", err)
		}
	}

	if err := c.executionRepo.Update(pctx, exec); err != nil {
		logger.Error("failed to update execution", "error", err)
	}
}

// failExecution переводит execution в статус FAILED до запуска engine.
func (c *Conductor) failExecution(ctx context.Context, exec *domain.Execution, reason string) error {
	exec.MarkFailed(reason)

	if err := c.executionRepo.Update(ctx, exec); err != nil {
		return fmt.Errorf("update execution to failed: %w", err)
	}

	telemetry.ExecutionsFailed.WithLabelValues(exec.WorkflowName).Inc()

	c.logger.Warn("execution failed early",
		"execution_id", exec.ID,
		"workflow", exec.WorkflowName,
		"error", reason,
	)

	c.publishCompletion(ctx, exec, engine.Failed(reason))

	return fmt.Errorf("execution failed: %s", reason)
}

// publishCompletion публикует терминальное событие выполнения.
func (c *Conductor) publishCompletion(ctx context.Context, exec *domain.Execution, st engine.MachineState) {
	if c.publisher == nil {
		c.logger.Debug("publisher not available, skipping completion event",
			"execution_id", exec.ID,
		)
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	var err error
	switch st.Phase {
	case engine.PhaseSucceeded:
		err = c.publisher.PublishExecutionSucceeded(pctx, exec.ID, exec.WorkflowName)
	case engine.PhaseFailed:
		err = c.publisher.PublishExecutionFailed(pctx, exec.ID, exec.WorkflowName, st.Reason)
	}

	if err != nil {
		// Статус уже сохранён в БД — наблюдатели могут опросить API
		c.logger.Warn("failed to publish completion event",
			"execution_id", exec.ID,
			"error", err,
		)
	}
}
