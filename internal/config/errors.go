package config

import "errors"

var (
	// ErrInvalidFile — файл конфигурации не читается или содержит неизвестные ключи.
	ErrInvalidFile = errors.New("config: invalid file")

	// ErrInvalid — значения не проходят проверку.
	ErrInvalid = errors.New("config: invalid value")
)
