package mq

import "errors"

var (
	// ErrNoChannel — соединение есть, но канал ещё не открыт (идёт reconnect).
	ErrNoChannel = errors.New("mq: no channel available")

	// ErrClosed — соединение закрыто через Close.
	ErrClosed = errors.New("mq: connection closed")
)
