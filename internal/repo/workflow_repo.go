package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Sequenta/internal/domain"
)

// WorkflowRepo — репозиторий для работы с workflows.
//
// Каждая регистрация под существующим именем создаёт новую версию.
// Версии неизменяемы: строки таблицы workflows никогда не обновляются,
// поэтому выполнение, привязанное к версии, всегда может загрузить
// своё определение.
type WorkflowRepo struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepo создаёт новый WorkflowRepo.
func NewWorkflowRepo(pool *pgxpool.Pool) *WorkflowRepo {
	return &WorkflowRepo{pool: pool}
}

// Register сохраняет новую версию workflow.
// Номер версии автоматически инкрементируется в рамках имени.
func (r *WorkflowRepo) Register(ctx context.Context, name string, def domain.WorkflowDef) (*domain.Workflow, error) {
	defJSON, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal definition: %w", err)
	}

	var nextVersion int
	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(version), 0) + 1
		FROM workflows
		WHERE name = $1
	`, name).Scan(&nextVersion)
	if err != nil {
		return nil, fmt.Errorf("get next version: %w", err)
	}

	wf := &domain.Workflow{
		ID:         uuid.New(),
		Name:       name,
		Version:    nextVersion,
		Definition: def,
		CreatedAt:  time.Now(),
	}

	query := `
		INSERT INTO workflows (id, name, version, trigger_type, definition, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.pool.Exec(ctx, query,
		wf.ID,
		wf.Name,
		wf.Version,
		nullString(def.Trigger),
		defJSON,
		wf.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert workflow: %w", err)
	}
	return wf, nil
}

// GetLatest возвращает последнюю версию workflow по имени.
func (r *WorkflowRepo) GetLatest(ctx context.Context, name string) (*domain.Workflow, error) {
	query := `
		SELECT id, name, version, definition, created_at
		FROM workflows
		WHERE name = $1
		ORDER BY version DESC
		LIMIT 1
	`
	return r.scanWorkflow(r.pool.QueryRow(ctx, query, name))
}

// GetVersion возвращает конкретную версию workflow.
func (r *WorkflowRepo) GetVersion(ctx context.Context, name string, version int) (*domain.Workflow, error) {
	query := `
		SELECT id, name, version, definition, created_at
		FROM workflows
		WHERE name = $1 AND version = $2
	`
	return r.scanWorkflow(r.pool.QueryRow(ctx, query, name, version))
}

// List возвращает последнюю версию каждого workflow.
func (r *WorkflowRepo) List(ctx context.Context) ([]domain.Workflow, error) {
	query := `
		SELECT DISTINCT ON (name) id, name, version, definition, created_at
		FROM workflows
		ORDER BY name, version DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []domain.Workflow
	for rows.Next() {
		wf, err := r.scanWorkflowFromRows(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, *wf)
	}
	return workflows, rows.Err()
}

// ListVersions возвращает все версии workflow.
func (r *WorkflowRepo) ListVersions(ctx context.Context, name string) ([]domain.Workflow, error) {
	query := `
		SELECT id, name, version, definition, created_at
		FROM workflows
		WHERE name = $1
		ORDER BY version DESC
	`
	rows, err := r.pool.Query(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("list workflow versions: %w", err)
	}
	defer rows.Close()

	var workflows []domain.Workflow
	for rows.Next() {
		wf, err := r.scanWorkflowFromRows(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, *wf)
	}
	return workflows, rows.Err()
}

// ListByTrigger возвращает последние версии workflows,
// привязанных к триггерному событию.
func (r *WorkflowRepo) ListByTrigger(ctx context.Context, trigger string) ([]domain.Workflow, error) {
	query := `
		SELECT DISTINCT ON (name) id, name, version, definition, created_at
		FROM workflows
		WHERE trigger_type = $1
		ORDER BY name, version DESC
	`
	rows, err := r.pool.Query(ctx, query, trigger)
	if err != nil {
		return nil, fmt.Errorf("list workflows by trigger: %w", err)
	}
	defer rows.Close()

	var workflows []domain.Workflow
	for rows.Next() {
		wf, err := r.scanWorkflowFromRows(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, *wf)
	}
	return workflows, rows.Err()
}

// Delete удаляет workflow со всеми версиями.
func (r *WorkflowRepo) Delete(ctx context.Context, name string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM workflows WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

func (r *WorkflowRepo) scanWorkflow(row pgx.Row) (*domain.Workflow, error) {
	var wf domain.Workflow
	var defJSON []byte

	err := row.Scan(
		&wf.ID,
		&wf.Name,
		&wf.Version,
		&defJSON,
		&wf.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan workflow: %w", err)
	}

	if err := json.Unmarshal(defJSON, &wf.Definition); err != nil {
		return nil, fmt.Errorf("unmarshal definition: %w", err)
	}
	wf.Definition.Normalize()

	return &wf, nil
}

func (r *WorkflowRepo) scanWorkflowFromRows(rows pgx.Rows) (*domain.Workflow, error) {
	var wf domain.Workflow
	var defJSON []byte

	err := rows.Scan(
		&wf.ID,
		&wf.Name,
		&wf.Version,
		&defJSON,
		&wf.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan workflow: %w", err)
	}

	if err := json.Unmarshal(defJSON, &wf.Definition); err != nil {
		return nil, fmt.Errorf("unmarshal definition: %w", err)
	}
	wf.Definition.Normalize()

	return &wf, nil
}
