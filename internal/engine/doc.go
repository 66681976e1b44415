// Package engine содержит движок выполнения workflow.
//
// Включает:
//   - parser.go   — разбор и валидация определения workflow из JSON
//   - chain.go    — построение линейной цепочки состояний
//   - state.go    — MachineState, размеченное состояние машины
//   - executor.go — Engine: переход Step и цикл Run
//
// Engine интерпретирует валидированное определение: порядок этапов
// задан цепочкой Next, данные между этапами передаются через payload
// и селекторы состояний. Вызов задач делегируется task.Invoker.
package engine
