// Package task содержит инвокеры — исполнителей задач этапов workflow.
//
// # Обзор
//
// Задача этапа задаётся непрозрачной ссылкой (строкой). Инвокер:
//   - Получает ссылку задачи и построенный вход этапа
//   - Выполняет действие (HTTP вызов, пауза, трансформация)
//   - Возвращает сырой результат для селектора выхода этапа
//
// Вызов однократный: повторов при отказе нет, любая ошибка инвокера
// завершает выполнение workflow со статусом FAILED.
//
// # Интерфейс Invoker
//
// Все инвокеры реализуют интерфейс Invoker:
//
//	type Invoker interface {
//	    Invoke(ctx context.Context, taskRef string, input payload.Value) (payload.Value, error)
//	}
//
// Func — адаптер для использования функции как Invoker; основное
// применение — фейки задач в тестах.
//
// # Registry
//
// Registry выбирает инвокер по схеме ссылки — части до первого ':'
// (или всей ссылке, если двоеточия нет) — и сам реализует Invoker:
//
//	registry := task.DefaultRegistry() // http, https, delay, transform
//	result, err := registry.Invoke(ctx, "delay:2s", input)
//
// Ссылка с незарегистрированной схемой — отказ задачи.
//
// # Инвокеры
//
// ## HTTP (http.go)
//
// Ссылка — URL задачи:
//
//	http://classifier:8080/classify
//
// Вход сериализуется в JSON и отправляется POST-запросом; тело ответа
// разбирается как JSON и становится сырым результатом (не-JSON тело
// возвращается строкой). Статус >= 400 — отказ задачи.
//
// ## Delay (delay.go)
//
// Пауза на указанную длительность, вход возвращается без изменений:
//
//	delay:2s
//	delay:500ms
//
// ## Transform (transform.go)
//
// Локальная трансформация входа через Go-шаблон:
//
//	transform:{"id": "{{ .id }}", "classification": "recycle"}
//
// Результат рендеринга разбирается как JSON; не-JSON результат
// возвращается строкой.
//
// # Обработка ошибок
//
// Инвокеры возвращают типизированные ошибки:
//
//	var (
//	    ErrSchemeNotRegistered // схема без инвокера
//	    ErrInvalidTaskRef      // ссылка не соответствует формату
//	    ErrHTTPRequest         // транспортный сбой HTTP
//	    ErrHTTPStatus          // HTTP статус >= 400
//	    ErrInvokeCancelled     // вызов прерван контекстом
//	    ErrTemplateParse       // шаблон не разобран
//	    ErrTemplateRender      // ошибка рендеринга
//	)
//
// Для движка выполнения все они равнозначны: этап отказал.
//
// # Файлы пакета
//
//   - invoker.go   — интерфейс Invoker, адаптер Func
//   - registry.go  — Registry, диспетчеризация по схеме
//   - http.go      — HTTPInvoker
//   - delay.go     — DelayInvoker
//   - transform.go — TransformInvoker
//   - errors.go    — типизированные ошибки
package task
