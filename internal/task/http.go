package task

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shaiso/Sequenta/internal/payload"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPInvoker — инвокер задач, доступных по HTTP.
//
// Ссылка задачи — URL. Вход сериализуется в JSON и отправляется
// POST-запросом; тело ответа — сырой результат задачи. Ответ со
// статусом >= 400 и транспортные сбои — отказ задачи.
type HTTPInvoker struct {
	client  *http.Client
	timeout time.Duration
}

// HTTPConfig — конфигурация HTTPInvoker.
type HTTPConfig struct {
	// Timeout — таймаут одного вызова (default: 30s).
	Timeout time.Duration

	// Client — HTTP-клиент (default: новый клиент без таймаута,
	// таймаут задаётся контекстом вызова).
	Client *http.Client
}

// NewHTTPInvoker создаёт HTTP-инвокер.
// Для полей конфигурации с нулевыми значениями применяются дефолты.
func NewHTTPInvoker(cfg HTTPConfig) *HTTPInvoker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	return &HTTPInvoker{
		client:  cfg.Client,
		timeout: cfg.Timeout,
	}
}

// Invoke выполняет POST-запрос на URL из ссылки задачи.
func (i *HTTPInvoker) Invoke(ctx context.Context, taskRef string, input payload.Value) (payload.Value, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal input: %v", ErrHTTPRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, taskRef, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrHTTPRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTTPRequest, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrHTTPRequest, err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: %d: %s", ErrHTTPStatus, resp.StatusCode, truncate(string(respBody), 200))
	}

	// Тело ответа разбирается как JSON; не-JSON тело возвращается строкой.
	var result payload.Value
	if err := json.Unmarshal(respBody, &result); err != nil {
		return string(respBody), nil
	}
	return result, nil
}

// truncate обрезает строку до maxLen символов.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
