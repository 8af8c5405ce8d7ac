package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shaiso/permitflow/internal/domain"
)

// Handler — бизнес-логика одного имени задачи.
//
// Handle должен быть идемпотентным: при повторной доставке той же задачи
// внешнее состояние не должно расходиться с однократным выполнением.
// Любая ошибка (и паника) превращается в инцидент в engine.
type Handler interface {
	Handle(ctx context.Context, task *domain.Task) (*Result, error)
}

// HandlerFunc — адаптер функции к Handler.
type HandlerFunc func(ctx context.Context, task *domain.Task) (*Result, error)

// Handle вызывает f.
func (f HandlerFunc) Handle(ctx context.Context, task *domain.Task) (*Result, error) {
	return f(ctx, task)
}

// Result — выходные переменные процесса.
type Result struct {
	Variables map[string]any
}

// NewResult создаёт Result из пар имя/значение.
func NewResult(kv ...any) *Result {
	r := &Result{Variables: make(map[string]any, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		name, ok := kv[i].(string)
		if !ok {
			continue
		}
		r.Variables[name] = kv[i+1]
	}
	return r
}

// Set добавляет переменную и возвращает r.
func (r *Result) Set(name string, value any) *Result {
	if r.Variables == nil {
		r.Variables = make(map[string]any)
	}
	r.Variables[name] = value
	return r
}

// Registry — реестр обработчиков по имени задачи (топику engine).
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register добавляет обработчик. Повторная регистрация топика — ошибка.
func (r *Registry) Register(topic string, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[topic]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTopic, topic)
	}
	r.handlers[topic] = h
	return nil
}

// MustRegister — Register с паникой, для wiring при старте.
func (r *Registry) MustRegister(topic string, h Handler) {
	if err := r.Register(topic, h); err != nil {
		panic(err)
	}
}

// Get возвращает обработчик топика.
func (r *Registry) Get(topic string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[topic]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	return h, nil
}

// Topics возвращает зарегистрированные топики по алфавиту.
func (r *Registry) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	topics := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}
