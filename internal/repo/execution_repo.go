package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Sequenta/internal/domain"
	"github.com/shaiso/Sequenta/internal/payload"
)

// ExecutionRepo — репозиторий executions и их истории.
//
// Прогресс выполнения сохраняется поэтапно: строка executions
// обновляется после каждого перехода, записи истории только
// добавляются в execution_history.
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт новый ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

// Create сохраняет новый execution.
func (r *ExecutionRepo) Create(ctx context.Context, exec *domain.Execution) error {
	payloadJSON, err := nullJSON(exec.CurrentPayload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		INSERT INTO executions (id, workflow_name, workflow_version, status, current_state,
		                        current_payload, failure_reason, idempotency_key,
		                        started_at, finished_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.pool.Exec(ctx, query,
		exec.ID,
		exec.WorkflowName,
		exec.WorkflowVersion,
		exec.Status,
		exec.CurrentState,
		payloadJSON,
		nullString(exec.FailureReason),
		nullString(exec.IdempotencyKey),
		exec.StartedAt,
		exec.FinishedAt,
		exec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetByID возвращает execution вместе с историей этапов.
func (r *ExecutionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	query := `
		SELECT id, workflow_name, workflow_version, status, current_state,
		       current_payload, failure_reason, idempotency_key,
		       started_at, finished_at, created_at
		FROM executions
		WHERE id = $1
	`
	exec, err := r.scanExecution(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	history, err := r.loadHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	exec.History = history

	return exec, nil
}

// GetByIdempotencyKey возвращает execution по ключу дедупликации, без истории.
// Используется scheduler'ом для защиты от повторного создания.
func (r *ExecutionRepo) GetByIdempotencyKey(ctx context.Context, workflowName, key string) (*domain.Execution, error) {
	query := `
		SELECT id, workflow_name, workflow_version, status, current_state,
		       current_payload, failure_reason, idempotency_key,
		       started_at, finished_at, created_at
		FROM executions
		WHERE workflow_name = $1 AND idempotency_key = $2
	`
	return r.scanExecution(r.pool.QueryRow(ctx, query, workflowName, key))
}

// Update сохраняет прогресс execution. История сохраняется отдельно
// через AppendHistory.
func (r *ExecutionRepo) Update(ctx context.Context, exec *domain.Execution) error {
	payloadJSON, err := nullJSON(exec.CurrentPayload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		UPDATE executions
		SET status = $2, current_state = $3, current_payload = $4,
		    failure_reason = $5, started_at = $6, finished_at = $7
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		exec.ID,
		exec.Status,
		exec.CurrentState,
		payloadJSON,
		nullString(exec.FailureReason),
		exec.StartedAt,
		exec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendHistory добавляет запись истории этапа.
// Повторная вставка записи с тем же seq игнорируется, так что
// сохранение после каждого перехода идемпотентно.
func (r *ExecutionRepo) AppendHistory(ctx context.Context, executionID uuid.UUID, entry domain.HistoryEntry) error {
	inputJSON, err := nullJSON(entry.Input)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}
	outputJSON, err := nullJSON(entry.Output)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}

	query := `
		INSERT INTO execution_history (execution_id, seq, state_name, input, output, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (execution_id, seq) DO NOTHING
	`
	_, err = r.pool.Exec(ctx, query,
		executionID,
		entry.Seq,
		entry.StateName,
		inputJSON,
		outputJSON,
		entry.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// List возвращает executions с фильтрацией, без истории.
func (r *ExecutionRepo) List(ctx context.Context, filter ExecutionFilter) ([]domain.Execution, error) {
	query := `
		SELECT id, workflow_name, workflow_version, status, current_state,
		       current_payload, failure_reason, idempotency_key,
		       started_at, finished_at, created_at
		FROM executions
		WHERE ($1::text IS NULL OR workflow_name = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(filter.WorkflowName),
		nullString(string(filter.Status)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var execs []domain.Execution
	for rows.Next() {
		exec, err := r.scanExecutionFromRows(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, *exec)
	}
	return execs, rows.Err()
}

// ListPending возвращает executions в статусе PENDING, без истории.
// Используется поллингом conductor'а как fallback при недоступном MQ.
func (r *ExecutionRepo) ListPending(ctx context.Context, limit int) ([]domain.Execution, error) {
	query := `
		SELECT id, workflow_name, workflow_version, status, current_state,
		       current_payload, failure_reason, idempotency_key,
		       started_at, finished_at, created_at
		FROM executions
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending executions: %w", err)
	}
	defer rows.Close()

	var execs []domain.Execution
	for rows.Next() {
		exec, err := r.scanExecutionFromRows(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, *exec)
	}
	return execs, rows.Err()
}

// CountByStatus возвращает число executions в статусе.
func (r *ExecutionRepo) CountByStatus(ctx context.Context, status domain.ExecutionStatus) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM executions WHERE status = $1
	`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count executions: %w", err)
	}
	return count, nil
}

// --- Helpers ---

// ExecutionFilter — параметры фильтрации executions.
type ExecutionFilter struct {
	WorkflowName string
	Status       domain.ExecutionStatus
	Limit        int
	Offset       int
}

func (r *ExecutionRepo) scanExecution(row pgx.Row) (*domain.Execution, error) {
	var exec domain.Execution
	var payloadJSON []byte
	var failureReason, idempotencyKey *string

	err := row.Scan(
		&exec.ID,
		&exec.WorkflowName,
		&exec.WorkflowVersion,
		&exec.Status,
		&exec.CurrentState,
		&payloadJSON,
		&failureReason,
		&idempotencyKey,
		&exec.StartedAt,
		&exec.FinishedAt,
		&exec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}

	if payloadJSON != nil {
		if err := json.Unmarshal(payloadJSON, &exec.CurrentPayload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	if failureReason != nil {
		exec.FailureReason = *failureReason
	}
	if idempotencyKey != nil {
		exec.IdempotencyKey = *idempotencyKey
	}

	return &exec, nil
}

func (r *ExecutionRepo) scanExecutionFromRows(rows pgx.Rows) (*domain.Execution, error) {
	var exec domain.Execution
	var payloadJSON []byte
	var failureReason, idempotencyKey *string

	err := rows.Scan(
		&exec.ID,
		&exec.WorkflowName,
		&exec.WorkflowVersion,
		&exec.Status,
		&exec.CurrentState,
		&payloadJSON,
		&failureReason,
		&idempotencyKey,
		&exec.StartedAt,
		&exec.FinishedAt,
		&exec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}

	if payloadJSON != nil {
		if err := json.Unmarshal(payloadJSON, &exec.CurrentPayload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	if failureReason != nil {
		exec.FailureReason = *failureReason
	}
	if idempotencyKey != nil {
		exec.IdempotencyKey = *idempotencyKey
	}

	return &exec, nil
}

// loadHistory загружает историю этапов execution в порядке seq.
func (r *ExecutionRepo) loadHistory(ctx context.Context, executionID uuid.UUID) ([]domain.HistoryEntry, error) {
	query := `
		SELECT seq, state_name, input, output, completed_at
		FROM execution_history
		WHERE execution_id = $1
		ORDER BY seq ASC
	`
	rows, err := r.pool.Query(ctx, query, executionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var history []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		var inputJSON, outputJSON []byte

		if err := rows.Scan(
			&entry.Seq,
			&entry.StateName,
			&inputJSON,
			&outputJSON,
			&entry.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}

		if inputJSON != nil {
			if err := json.Unmarshal(inputJSON, &entry.Input); err != nil {
				return nil, fmt.Errorf("unmarshal history input: %w", err)
			}
		}
		if outputJSON != nil {
			if err := json.Unmarshal(outputJSON, &entry.Output); err != nil {
				return nil, fmt.Errorf("unmarshal history output: %w", err)
			}
		}

		history = append(history, entry)
	}
	return history, rows.Err()
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullJSON сериализует значение payload, возвращая nil для nil-значения,
// чтобы в БД оказался NULL, а не JSON-литерал null.
func nullJSON(v payload.Value) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
