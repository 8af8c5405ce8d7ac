package worker

import "errors"

// Ошибки воркера.
var (
	// ErrUnknownTopic — нет обработчика для имени задачи.
	ErrUnknownTopic = errors.New("no handler registered for topic")

	// ErrDuplicateTopic — обработчик для топика уже зарегистрирован.
	ErrDuplicateTopic = errors.New("handler already registered for topic")

	// ErrHandlerPanic — обработчик запаниковал.
	ErrHandlerPanic = errors.New("handler panicked")

	// ErrNoTopics — воркер запущен без обработчиков.
	ErrNoTopics = errors.New("no topics registered")

	// ErrAlreadyStarted — повторный Start.
	ErrAlreadyStarted = errors.New("worker already started")
)
