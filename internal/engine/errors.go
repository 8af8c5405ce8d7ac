package engine

import "errors"

var (
	// ErrNoWorkerID — клиент создан без идентификатора воркера.
	ErrNoWorkerID = errors.New("engine: worker id is required")

	// ErrNoTopics — fetch-and-lock без топиков.
	ErrNoTopics = errors.New("engine: no topics to fetch")

	// ErrUnsupportedVariable — значение нельзя закодировать в переменную процесса.
	ErrUnsupportedVariable = errors.New("engine: unsupported variable value")
)
