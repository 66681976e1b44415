package engine

import (
	"encoding/json"
	"fmt"

	"github.com/shaiso/Sequenta/internal/domain"
	"github.com/shaiso/Sequenta/internal/payload"
)

// Parse разбирает JSON-документ определения workflow.
//
// После разбора определение нормализуется (имена состояний из ключей
// States, селекторы по умолчанию) и проходит полную валидацию.
// Невалидное определение никогда не возвращается.
func Parse(data []byte) (*domain.WorkflowDef, error) {
	var def domain.WorkflowDef
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseDefinition, err)
	}

	def.Normalize()

	if err := Validate(&def); err != nil {
		return nil, err
	}

	return &def, nil
}

// Validate выполняет полную валидацию определения workflow.
//
// Проверяет:
// - Наличие состояний и стартового состояния
// - Непустую ссылку на задачу у каждого состояния
// - Ровно одно из next/end
// - Синтаксис селекторов
// - Разрешимость всех next
// - Достижимость единственного терминального состояния без циклов
//   и отсутствие состояний вне цепочки (делегируется BuildChain)
//
// Выполняется один раз при загрузке определения, до любого выполнения.
func Validate(def *domain.WorkflowDef) error {
	if def == nil || len(def.States) == 0 {
		return NewValidationError("", "states", "workflow has no states", ErrEmptyStates)
	}

	if def.StartAt == "" {
		return NewValidationError("", "start_at", "workflow has no start state", ErrNoStartState)
	}

	if _, ok := def.States[def.StartAt]; !ok {
		return NewValidationError("", "start_at",
			fmt.Sprintf("start state %q not found", def.StartAt), ErrStartNotFound)
	}

	// Валидируем каждое состояние
	for name, state := range def.States {
		if err := validateState(name, state, def.States); err != nil {
			return err
		}
	}

	// Проверяем цепочку: старт → единственный терминал, без циклов
	if _, err := BuildChain(def); err != nil {
		return err
	}

	return nil
}

// validateState валидирует одно состояние.
func validateState(name string, state *domain.StateDef, states map[string]*domain.StateDef) error {
	if state == nil {
		return NewValidationError(name, "", "state is null", ErrNullState)
	}

	if state.Task == "" {
		return NewValidationError(name, "task", "state has empty task reference", ErrEmptyTask)
	}

	// Ровно одно из next/end
	if state.Next != "" && state.End {
		return NewValidationError(name, "next", "state has both next and end", ErrNextAndEnd)
	}
	if state.Next == "" && !state.End {
		return NewValidationError(name, "next", "state has neither next nor end", ErrNoTransition)
	}

	if state.Next != "" {
		if _, ok := states[state.Next]; !ok {
			return NewValidationError(name, "next",
				fmt.Sprintf("next references unknown state: %s", state.Next), ErrDanglingNext)
		}
	}

	if state.InputSelector != "" {
		if err := payload.ValidateSelector(state.InputSelector); err != nil {
			return NewValidationError(name, "input_selector", err.Error(), err)
		}
	}
	if state.OutputSelector != "" {
		if err := payload.ValidateSelector(state.OutputSelector); err != nil {
			return NewValidationError(name, "output_selector", err.Error(), err)
		}
	}

	return nil
}
