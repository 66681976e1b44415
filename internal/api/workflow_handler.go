package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/shaiso/Sequenta/internal/engine"
)

// ListWorkflows возвращает последние версии всех workflows.
// GET /api/v1/workflows
func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := h.workflowRepo.List(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]WorkflowResponse, len(workflows))
	for i, wf := range workflows {
		result[i] = WorkflowFromDomain(wf)
	}

	List(w, result, len(result))
}

// RegisterWorkflow регистрирует новую версию workflow.
// POST /api/v1/workflows
//
// Тело запроса — JSON-документ определения workflow. Повторная
// регистрация под тем же именем создаёт следующую версию; уже
// запущенные executions продолжают работать на своей версии.
func (h *Handler) RegisterWorkflow(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		BadRequest(w, "failed to read request body")
		return
	}

	def, err := engine.Parse(data)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	if def.Name == "" {
		BadRequest(w, "workflow name is required")
		return
	}

	wf, err := h.workflowRepo.Register(r.Context(), def.Name, *def)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	h.logger.Info("workflow registered", "workflow", wf.Name, "version", wf.Version)

	Created(w, WorkflowFromDomain(*wf))
}

// ValidateWorkflow проверяет определение workflow без регистрации.
// POST /api/v1/workflows/validate
//
// Всегда отвечает 200: результат проверки — в теле ответа.
func (h *Handler) ValidateWorkflow(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		BadRequest(w, "failed to read request body")
		return
	}

	if _, err := engine.Parse(data); err != nil {
		Success(w, ValidateResponse{Valid: false, Error: err.Error()})
		return
	}

	Success(w, ValidateResponse{Valid: true})
}

// GetWorkflow возвращает последнюю версию workflow по имени.
// GET /api/v1/workflows/{name}
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	wf, err := h.workflowRepo.GetLatest(r.Context(), name)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	Success(w, WorkflowFromDomain(*wf))
}

// DeleteWorkflow удаляет workflow со всеми версиями.
// DELETE /api/v1/workflows/{name}
func (h *Handler) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if err := h.workflowRepo.Delete(r.Context(), name); err != nil {
		if HandleRepoError(w, h.logger, err, "workflow not found") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	NoContent(w)
}

// ListWorkflowVersions возвращает все версии workflow.
// GET /api/v1/workflows/{name}/versions
func (h *Handler) ListWorkflowVersions(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	versions, err := h.workflowRepo.ListVersions(r.Context(), name)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	if len(versions) == 0 {
		NotFound(w, "workflow not found")
		return
	}

	result := make([]WorkflowResponse, len(versions))
	for i, v := range versions {
		result[i] = WorkflowFromDomain(v)
	}

	List(w, result, len(result))
}

// GetWorkflowVersion возвращает конкретную версию workflow.
// GET /api/v1/workflows/{name}/versions/{version}
func (h *Handler) GetWorkflowVersion(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	versionNum, err := strconv.Atoi(r.PathValue("version"))
	if err != nil {
		BadRequest(w, "invalid version number")
		return
	}

	wf, err := h.workflowRepo.GetVersion(r.Context(), name, versionNum)
	if HandleRepoError(w, h.logger, err, "workflow version not found") {
		return
	}

	Success(w, WorkflowFromDomain(*wf))
}
