package task

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/shaiso/Sequenta/internal/payload"
)

// TransformInvoker — инвокер локальной трансформации payload.
//
// Ссылка задачи: "transform:<шаблон>", где шаблон — Go-шаблон,
// рендерящийся со входом задачи в качестве контекста. Результат
// рендеринга разбирается как JSON; не-JSON результат возвращается
// строкой. Применяется как локальная замена внешней задачи в
// разработке и демонстрационных workflow:
//
//	transform:{"id": "{{ .id }}", "classification": "recycle"}
type TransformInvoker struct{}

// Функции, доступные в шаблонах трансформации.
var templateFuncs = template.FuncMap{
	"json": func(v any) (string, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	},
	"lower": strings.ToLower,
	"upper": strings.ToUpper,
	"trim":  strings.TrimSpace,
}

// NewTransformInvoker создаёт инвокер трансформации.
func NewTransformInvoker() *TransformInvoker {
	return &TransformInvoker{}
}

// Invoke рендерит шаблон из ссылки со входом задачи как контекстом.
func (i *TransformInvoker) Invoke(ctx context.Context, taskRef string, input payload.Value) (payload.Value, error) {
	tmplStr := RefValue(taskRef)
	if tmplStr == "" {
		return nil, fmt.Errorf("%w: %s: missing template", ErrInvalidTaskRef, Scheme(taskRef))
	}

	rendered, err := render(tmplStr, input)
	if err != nil {
		return nil, err
	}
	return parseRendered(rendered), nil
}

// render выполняет Go-шаблон с data в качестве контекста.
// Обращение к отсутствующему ключу — ошибка рендеринга.
func render(tmplStr string, data payload.Value) (string, error) {
	tmpl, err := template.New("transform").Funcs(templateFuncs).Option("missingkey=error").Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateParse, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateRender, err)
	}
	return buf.String(), nil
}

// parseRendered разбирает отрендеренную строку в значение payload.
// Валидный JSON декодируется; всё прочее возвращается строкой как есть.
func parseRendered(rendered string) payload.Value {
	trimmed := strings.TrimSpace(rendered)
	if trimmed == "" {
		return ""
	}

	var value payload.Value
	if err := json.Unmarshal([]byte(trimmed), &value); err == nil {
		return value
	}
	return rendered
}
