package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Sequenta/internal/payload"
)

// DefaultSelector — селектор по умолчанию для входа и выхода состояния.
// Разрешается в payload целиком.
const DefaultSelector = "$"

// Workflow — зарегистрированное определение рабочего процесса.
//
// Workflow — это "рецепт" конвейера: линейная цепочка состояний,
// каждое из которых вызывает одну внешнюю задачу. Каждое срабатывание
// триггера создаёт отдельный Execution этого workflow.
type Workflow struct {
	// ID — уникальный идентификатор workflow.
	ID uuid.UUID `json:"id"`

	// Name — уникальное имя workflow (например, "waste-classification").
	// Используется для идентификации в API, CLI и событиях.
	Name string `json:"name"`

	// Version — номер версии определения (1, 2, 3, ...).
	// Автоинкремент при повторной регистрации под тем же именем.
	Version int `json:"version"`

	// Definition — само определение цепочки состояний.
	Definition WorkflowDef `json:"definition"`

	// CreatedAt — время регистрации этой версии.
	// Версии неизменяемы: обновление workflow — это новая версия.
	CreatedAt time.Time `json:"created_at"`
}

// WorkflowDef — определение workflow (содержимое JSONB поля definition).
//
// Это декларативный документ: состояния и их связи, без кода.
// После загрузки и валидации определение только читается.
type WorkflowDef struct {
	// Name — имя workflow (дублирует Workflow.Name для удобства).
	Name string `json:"name,omitempty"`

	// Comment — описание назначения workflow.
	Comment string `json:"comment,omitempty"`

	// Trigger — тип триггерного события, запускающего workflow
	// (например, "object.created"). Пусто, если workflow запускается
	// только вручную или по расписанию.
	Trigger string `json:"trigger,omitempty"`

	// StartAt — имя состояния, с которого начинается выполнение.
	StartAt string `json:"start_at"`

	// States — определения состояний по имени.
	States map[string]*StateDef `json:"states"`
}

// StateAt возвращает определение состояния по имени.
func (d *WorkflowDef) StateAt(name string) (*StateDef, bool) {
	s, ok := d.States[name]
	return s, ok
}

// Normalize заполняет производные поля после десериализации:
// имена состояний из ключей States и селекторы по умолчанию.
// Вызывается при загрузке определения из JSON и из БД.
func (d *WorkflowDef) Normalize() {
	for name, state := range d.States {
		if state == nil {
			continue
		}
		state.Name = name
		if state.InputSelector == "" {
			state.InputSelector = DefaultSelector
		}
		if state.OutputSelector == "" {
			state.OutputSelector = DefaultSelector
		}
	}
}

// StateDef — определение одного состояния (этапа конвейера).
//
// Состояние вызывает одну задачу и передаёт управление ровно одному
// преемнику либо завершает workflow. Ровно одно из полей Next/End
// должно быть задано.
type StateDef struct {
	// Name — имя состояния, уникальное в рамках workflow.
	// Заполняется при загрузке из ключа States.
	Name string `json:"-"`

	// Task — непрозрачная ссылка на задачу, разрешаемая Task Invoker'ом.
	// Примеры: "http://classifier:8080/classify", "delay:2s", "classify".
	Task string `json:"task"`

	// InputSelector — селектор, строящий вход задачи из текущего payload.
	// По умолчанию "$" — весь payload целиком.
	InputSelector string `json:"input_selector,omitempty"`

	// OutputSelector — селектор, извлекающий следующий payload из сырого
	// результата задачи. По умолчанию "$" — результат целиком.
	// Например, "$.Payload" разворачивает конверт ответа задачи.
	OutputSelector string `json:"output_selector,omitempty"`

	// Next — имя состояния-преемника. Пусто для терминального состояния.
	Next string `json:"next,omitempty"`

	// End — true, если состояние терминальное (конец конвейера).
	End bool `json:"end,omitempty"`
}

// IsTerminal возвращает true, если состояние завершает workflow.
func (s *StateDef) IsTerminal() bool {
	return s.End
}

// BuildInput строит вход задачи из текущего payload.
// Разрешает InputSelector; селектор по умолчанию — тождественный.
func (s *StateDef) BuildInput(current payload.Value) (payload.Value, error) {
	return payload.Resolve(current, selectorOrDefault(s.InputSelector))
}

// ExtractOutput извлекает следующий payload из сырого результата задачи.
// Разрешает OutputSelector; селектор по умолчанию — тождественный.
func (s *StateDef) ExtractOutput(raw payload.Value) (payload.Value, error) {
	return payload.Resolve(raw, selectorOrDefault(s.OutputSelector))
}

// selectorOrDefault возвращает селектор или "$", если селектор пуст.
func selectorOrDefault(selector string) string {
	if selector == "" {
		return DefaultSelector
	}
	return selector
}
