package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// WorkflowResponse — workflow из API.
type WorkflowResponse struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Version    int            `json:"version"`
	Definition map[string]any `json:"definition"`
	CreatedAt  string         `json:"created_at"`
}

// ValidateResponse — результат валидации определения.
type ValidateResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ExecutionResponse — execution из API.
type ExecutionResponse struct {
	ID              string         `json:"id"`
	WorkflowName    string         `json:"workflow_name"`
	WorkflowVersion int            `json:"workflow_version"`
	Status          string         `json:"status"`
	CurrentState    string         `json:"current_state"`
	CurrentPayload  any            `json:"current_payload,omitempty"`
	FailureReason   string         `json:"failure_reason,omitempty"`
	History         []HistoryEntry `json:"history,omitempty"`
	StartedAt       string         `json:"started_at,omitempty"`
	FinishedAt      string         `json:"finished_at,omitempty"`
	CreatedAt       string         `json:"created_at"`
}

// HistoryEntry — этап истории execution из API.
type HistoryEntry struct {
	Seq         int    `json:"seq"`
	StateName   string `json:"state_name"`
	Input       any    `json:"input,omitempty"`
	Output      any    `json:"output,omitempty"`
	CompletedAt string `json:"completed_at"`
}

// ScheduleResponse — schedule из API.
type ScheduleResponse struct {
	ID              string `json:"id"`
	WorkflowName    string `json:"workflow_name"`
	Name            string `json:"name,omitempty"`
	CronExpr        string `json:"cron_expr,omitempty"`
	IntervalSec     int    `json:"interval_sec,omitempty"`
	Timezone        string `json:"timezone"`
	Enabled         bool   `json:"enabled"`
	NextDueAt       string `json:"next_due_at,omitempty"`
	LastFiredAt     string `json:"last_fired_at,omitempty"`
	LastExecutionID string `json:"last_execution_id,omitempty"`
	InitialPayload  any    `json:"initial_payload,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// --- Request types ---

// StartExecutionRequest — запуск execution.
type StartExecutionRequest struct {
	Input   any  `json:"input,omitempty"`
	Version *int `json:"version,omitempty"`
}

// CreateScheduleRequest — создание schedule.
type CreateScheduleRequest struct {
	Name           string `json:"name"`
	CronExpr       string `json:"cron_expr,omitempty"`
	IntervalSec    int    `json:"interval_sec,omitempty"`
	Timezone       string `json:"timezone,omitempty"`
	Enabled        bool   `json:"enabled"`
	InitialPayload any    `json:"initial_payload,omitempty"`
}

// UpdateScheduleRequest — обновление schedule.
type UpdateScheduleRequest struct {
	Name        *string `json:"name,omitempty"`
	CronExpr    *string `json:"cron_expr,omitempty"`
	IntervalSec *int    `json:"interval_sec,omitempty"`
	Timezone    *string `json:"timezone,omitempty"`
}

// ListExecutionsOpts — параметры фильтрации executions.
type ListExecutionsOpts struct {
	Workflow string
	Status   string
	Limit    int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Sequenta API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Workflows ---

// ListWorkflows возвращает последние версии всех workflows.
func (c *Client) ListWorkflows() ([]WorkflowResponse, error) {
	var workflows []WorkflowResponse
	err := c.list("/api/v1/workflows", nil, &workflows)
	return workflows, err
}

// RegisterWorkflow регистрирует определение workflow.
// Повторная регистрация под тем же именем создаёт новую версию.
func (c *Client) RegisterWorkflow(definition json.RawMessage) (*WorkflowResponse, error) {
	var wf WorkflowResponse
	err := c.post("/api/v1/workflows", definition, &wf)
	return &wf, err
}

// ValidateWorkflow проверяет определение без регистрации.
func (c *Client) ValidateWorkflow(definition json.RawMessage) (*ValidateResponse, error) {
	var result ValidateResponse
	err := c.post("/api/v1/workflows/validate", definition, &result)
	return &result, err
}

// GetWorkflow возвращает последнюю версию workflow по имени.
func (c *Client) GetWorkflow(name string) (*WorkflowResponse, error) {
	var wf WorkflowResponse
	err := c.get("/api/v1/workflows/"+name, &wf)
	return &wf, err
}

// ListVersions возвращает все версии workflow.
func (c *Client) ListVersions(name string) ([]WorkflowResponse, error) {
	var versions []WorkflowResponse
	err := c.list("/api/v1/workflows/"+name+"/versions", nil, &versions)
	return versions, err
}

// DeleteWorkflow удаляет workflow со всеми версиями.
func (c *Client) DeleteWorkflow(name string) error {
	return c.delete("/api/v1/workflows/" + name)
}

// --- Executions ---

// ListExecutions возвращает список executions с фильтрацией.
func (c *Client) ListExecutions(opts ListExecutionsOpts) ([]ExecutionResponse, error) {
	params := url.Values{}
	if opts.Workflow != "" {
		params.Set("workflow", opts.Workflow)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	var executions []ExecutionResponse
	err := c.list("/api/v1/executions", params, &executions)
	return executions, err
}

// StartExecution запускает execution для workflow.
func (c *Client) StartExecution(workflow string, req StartExecutionRequest) (*ExecutionResponse, error) {
	var exec ExecutionResponse
	err := c.post("/api/v1/workflows/"+workflow+"/executions", req, &exec)
	return &exec, err
}

// GetExecution возвращает execution по ID вместе с историей.
func (c *Client) GetExecution(id string) (*ExecutionResponse, error) {
	var exec ExecutionResponse
	err := c.get("/api/v1/executions/"+id, &exec)
	return &exec, err
}

// --- Schedules ---

// ListSchedules возвращает schedules. Если workflow не пустой — фильтрует.
func (c *Client) ListSchedules(workflow string) ([]ScheduleResponse, error) {
	params := url.Values{}
	if workflow != "" {
		params.Set("workflow", workflow)
	}

	var schedules []ScheduleResponse
	err := c.list("/api/v1/schedules", params, &schedules)
	return schedules, err
}

// CreateSchedule создаёт schedule для workflow.
func (c *Client) CreateSchedule(workflow string, req CreateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.post("/api/v1/workflows/"+workflow+"/schedules", req, &schedule)
	return &schedule, err
}

// GetSchedule возвращает schedule по ID.
func (c *Client) GetSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.get("/api/v1/schedules/"+id, &schedule)
	return &schedule, err
}

// UpdateSchedule обновляет schedule.
func (c *Client) UpdateSchedule(id string, req UpdateScheduleRequest) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.put("/api/v1/schedules/"+id, req, &schedule)
	return &schedule, err
}

// DeleteSchedule удаляет schedule.
func (c *Client) DeleteSchedule(id string) error {
	return c.delete("/api/v1/schedules/" + id)
}

// EnableSchedule включает schedule.
func (c *Client) EnableSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]bool{"enabled": true}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &schedule)
	return &schedule, err
}

// DisableSchedule выключает schedule.
func (c *Client) DisableSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]bool{"enabled": false}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &schedule)
	return &schedule, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
