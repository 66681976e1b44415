package task

import "errors"

// Ошибки вызова задач.
var (
	// ErrSchemeNotRegistered — для схемы ссылки нет инвокера.
	ErrSchemeNotRegistered = errors.New("task scheme not registered")

	// ErrInvalidTaskRef — ссылка задачи не соответствует формату инвокера.
	ErrInvalidTaskRef = errors.New("invalid task reference")

	// ErrHTTPRequest — HTTP-запрос не удалось выполнить.
	ErrHTTPRequest = errors.New("http request failed")

	// ErrHTTPStatus — задача ответила статусом ошибки (>= 400).
	ErrHTTPStatus = errors.New("http error status")

	// ErrInvokeCancelled — вызов прерван отменой контекста.
	ErrInvokeCancelled = errors.New("task invocation cancelled")

	// ErrTemplateParse — шаблон трансформации не разобран.
	ErrTemplateParse = errors.New("template parse failed")

	// ErrTemplateRender — рендеринг шаблона завершился ошибкой.
	ErrTemplateRender = errors.New("template render failed")
)
