// Package payload определяет модель данных, передаваемых между шагами workflow.
//
// Включает:
//   - value.go — обобщённое JSON-дерево (Value) и операции над ним
//   - path.go  — селекторы пути ($, $.field, $.items[0]) и их разрешение
//
// Payload неизменяем: каждое преобразование создаёт новое значение,
// исходное никогда не мутируется на месте.
package payload
