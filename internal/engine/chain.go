package engine

import (
	"fmt"

	"github.com/shaiso/Sequenta/internal/domain"
)

// BuildChain обходит цепочку состояний от StartAt до терминального.
//
// Возвращает имена состояний в порядке выполнения. Обход следует
// только по ссылкам next; каждое состояние посещается не более
// одного раза.
//
// Ошибки:
//   - ErrCycleDetected — состояние встретилось повторно
//   - ErrDanglingNext — переход на несуществующее состояние
//   - ErrUnreachableState — состояние вне цепочки
//
// Для валидного линейного workflow цепочка покрывает все состояния
// и заканчивается единственным терминальным.
func BuildChain(def *domain.WorkflowDef) ([]string, error) {
	visited := make(map[string]bool, len(def.States))
	chain := make([]string, 0, len(def.States))

	cur := def.StartAt
	for {
		if visited[cur] {
			return nil, NewValidationError(cur, "next",
				fmt.Sprintf("state %s is visited twice", cur), ErrCycleDetected)
		}

		state, ok := def.States[cur]
		if !ok || state == nil {
			return nil, NewValidationError(cur, "next",
				fmt.Sprintf("chain references unknown state: %s", cur), ErrDanglingNext)
		}

		visited[cur] = true
		chain = append(chain, cur)

		if state.End {
			break
		}
		cur = state.Next
	}

	// Линейный workflow не имеет состояний вне цепочки
	if len(chain) != len(def.States) {
		for name := range def.States {
			if !visited[name] {
				return nil, NewValidationError(name, "",
					fmt.Sprintf("state %s is not reachable from start", name), ErrUnreachableState)
			}
		}
	}

	return chain, nil
}
