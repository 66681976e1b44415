package task

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shaiso/Sequenta/internal/payload"
)

// Registry — реестр инвокеров, диспетчеризующий по схеме ссылки задачи.
//
// Ссылка задачи — непрозрачная строка вида "scheme:rest" либо просто
// "name". Схема (часть до первого ':', либо вся ссылка целиком)
// выбирает инвокер. Потокобезопасен.
//
// Примеры ссылок:
//
//	"http://classifier:8080/classify" → инвокер схемы "http"
//	"delay:2s"                        → инвокер схемы "delay"
//	"classify"                        → инвокер схемы "classify"
type Registry struct {
	mu       sync.RWMutex
	invokers map[string]Invoker
}

// NewRegistry создаёт пустой реестр инвокеров.
func NewRegistry() *Registry {
	return &Registry{
		invokers: make(map[string]Invoker),
	}
}

// DefaultRegistry создаёт реестр со стандартным набором инвокеров:
// http, https, delay и transform.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	httpInvoker := NewHTTPInvoker(HTTPConfig{})
	r.Register("http", httpInvoker)
	r.Register("https", httpInvoker)
	r.Register("delay", NewDelayInvoker())
	r.Register("transform", NewTransformInvoker())

	return r
}

// Register регистрирует инвокер для схемы. Повторная регистрация
// заменяет существующий инвокер.
func (r *Registry) Register(scheme string, invoker Invoker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invokers[scheme] = invoker
}

// Unregister удаляет инвокер схемы из реестра.
func (r *Registry) Unregister(scheme string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.invokers, scheme)
}

// Get возвращает инвокер для схемы.
func (r *Registry) Get(scheme string) (Invoker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	invoker, ok := r.invokers[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSchemeNotRegistered, scheme)
	}
	return invoker, nil
}

// Has сообщает, зарегистрирована ли схема.
func (r *Registry) Has(scheme string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.invokers[scheme]
	return ok
}

// Schemes возвращает отсортированный список зарегистрированных схем.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemes := make([]string, 0, len(r.invokers))
	for scheme := range r.invokers {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)
	return schemes
}

// Count возвращает число зарегистрированных схем.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.invokers)
}

// Invoke реализует интерфейс Invoker: выбирает инвокер по схеме
// ссылки и делегирует вызов ему.
func (r *Registry) Invoke(ctx context.Context, taskRef string, input payload.Value) (payload.Value, error) {
	invoker, err := r.Get(Scheme(taskRef))
	if err != nil {
		return nil, err
	}
	return invoker.Invoke(ctx, taskRef, input)
}

// Scheme возвращает схему ссылки задачи: часть до первого ':'
// либо всю ссылку, если двоеточия нет.
func Scheme(taskRef string) string {
	if i := strings.IndexByte(taskRef, ':'); i >= 0 {
		return taskRef[:i]
	}
	return taskRef
}

// RefValue возвращает часть ссылки после первого ':' — аргумент
// инвокера. Для ссылки без двоеточия возвращает пустую строку.
func RefValue(taskRef string) string {
	if i := strings.IndexByte(taskRef, ':'); i >= 0 {
		return taskRef[i+1:]
	}
	return ""
}
