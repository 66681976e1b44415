package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/shaiso/Sequenta/internal/domain"
	"github.com/shaiso/Sequenta/internal/repo"
)

// ListExecutions возвращает список executions с фильтрацией.
// GET /api/v1/executions?workflow=...&status=...&limit=...&offset=...
func (h *Handler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	filter := repo.ExecutionFilter{}

	// Парсим query параметры
	if workflow := r.URL.Query().Get("workflow"); workflow != "" {
		filter.WorkflowName = workflow
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = domain.ExecutionStatus(status)
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		filter.Limit = int(mustParseInt(limitStr, 50))
	} else {
		filter.Limit = 50
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		filter.Offset = int(mustParseInt(offsetStr, 0))
	}

	executions, err := h.executionRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ExecutionResponse, len(executions))
	for i, exec := range executions {
		result[i] = ExecutionFromDomain(exec)
	}

	List(w, result, len(result))
}

// StartExecution создаёт новый execution для workflow.
// POST /api/v1/workflows/{name}/executions
//
// Execution создаётся в статусе PENDING; выполняет его conductor.
func (h *Handler) StartExecution(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req StartExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	// Определяем версию
	var wf *domain.Workflow
	var err error
	if req.Version != nil {
		wf, err = h.workflowRepo.GetVersion(r.Context(), name, *req.Version)
		if HandleRepoError(w, h.logger, err, "workflow version not found") {
			return
		}
	} else {
		wf, err = h.workflowRepo.GetLatest(r.Context(), name)
		if HandleRepoError(w, h.logger, err, "workflow not found") {
			return
		}
	}

	exec := domain.NewExecution(wf.Name, wf.Version, wf.Definition.StartAt, req.Input)

	if err := h.executionRepo.Create(r.Context(), exec); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	// Публикуем событие в очередь
	if h.publisher != nil {
		if err := h.publisher.PublishExecutionRequested(r.Context(), exec.ID); err != nil {
			// Conductor подхватит его через polling
			h.logger.Warn("failed to publish execution.requested", "execution_id", exec.ID, "error", err)
		}
	}

	Created(w, ExecutionFromDomain(*exec))
}

// GetExecution возвращает execution по ID вместе с историей этапов.
// GET /api/v1/executions/{id}
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	exec, err := h.executionRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	Success(w, ExecutionFromDomain(*exec))
}

// mustParseInt парсит строку в int с дефолтным значением.
func mustParseInt(s string, defaultVal int64) int64 {
	if n, err := json.Number(s).Int64(); err == nil {
		return n
	}
	return defaultVal
}
