package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Workflows
	mux.Handle("GET /api/v1/workflows", chain(http.HandlerFunc(h.ListWorkflows)))
	mux.Handle("POST /api/v1/workflows", chain(http.HandlerFunc(h.RegisterWorkflow)))
	mux.Handle("POST /api/v1/workflows/validate", chain(http.HandlerFunc(h.ValidateWorkflow)))
	mux.Handle("GET /api/v1/workflows/{name}", chain(http.HandlerFunc(h.GetWorkflow)))
	mux.Handle("DELETE /api/v1/workflows/{name}", chain(http.HandlerFunc(h.DeleteWorkflow)))
	mux.Handle("GET /api/v1/workflows/{name}/versions", chain(http.HandlerFunc(h.ListWorkflowVersions)))
	mux.Handle("GET /api/v1/workflows/{name}/versions/{version}", chain(http.HandlerFunc(h.GetWorkflowVersion)))

	// Executions
	mux.Handle("GET /api/v1/executions", chain(http.HandlerFunc(h.ListExecutions)))
	mux.Handle("POST /api/v1/workflows/{name}/executions", chain(http.HandlerFunc(h.StartExecution)))
	mux.Handle("GET /api/v1/executions/{id}", chain(http.HandlerFunc(h.GetExecution)))

	// Schedules
	mux.Handle("GET /api/v1/schedules", chain(http.HandlerFunc(h.ListSchedules)))
	mux.Handle("POST /api/v1/workflows/{name}/schedules", chain(http.HandlerFunc(h.CreateSchedule)))
	mux.Handle("GET /api/v1/schedules/{id}", chain(http.HandlerFunc(h.GetSchedule)))
	mux.Handle("PUT /api/v1/schedules/{id}", chain(http.HandlerFunc(h.UpdateSchedule)))
	mux.Handle("DELETE /api/v1/schedules/{id}", chain(http.HandlerFunc(h.DeleteSchedule)))
	mux.Handle("PUT /api/v1/schedules/{id}/enabled", chain(http.HandlerFunc(h.SetScheduleEnabled)))
}
