package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrRequest — запрос не дошёл до ответа (сеть, DNS, таймаут).
var ErrRequest = errors.New("request failed")

// Problem — тело ошибки (RFC 7807 и вариант с errorCode).
type Problem struct {
	Type      string `json:"type,omitempty"`
	Title     string `json:"title,omitempty"`
	Status    int    `json:"status,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Code      string `json:"code,omitempty"`
	ErrorCode any    `json:"errorCode,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Codes возвращает все непустые коды ошибки из тела.
func (p Problem) Codes() []string {
	var codes []string
	errorCode := ""
	if p.ErrorCode != nil {
		errorCode = fmt.Sprint(p.ErrorCode)
	}
	for _, c := range []string{p.Code, errorCode, p.Title} {
		if c != "" {
			codes = append(codes, c)
		}
	}
	return codes
}

// Error — ответ внешней системы со статусом >= 400.
type Error struct {
	System     string
	Method     string
	Path       string
	StatusCode int
	Problem    Problem
	Body       string
}

func (e *Error) Error() string {
	msg := e.Problem.Detail
	if msg == "" {
		msg = e.Problem.Message
	}
	if msg == "" {
		msg = truncate(e.Body, 200)
	}
	return fmt.Sprintf("%s: %s %s: HTTP %d: %s", e.System, e.Method, e.Path, e.StatusCode, msg)
}

// AsError извлекает *Error из цепочки.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsConflict — ответ 409.
func IsConflict(err error) bool {
	e, ok := AsError(err)
	return ok && e.StatusCode == http.StatusConflict
}

// IsNotFound — ответ 404.
func IsNotFound(err error) bool {
	e, ok := AsError(err)
	return ok && e.StatusCode == http.StatusNotFound
}

// IsTransient — сетевая ошибка, 429 или 5xx.
func IsTransient(err error) bool {
	if errors.Is(err, ErrRequest) {
		return true
	}
	e, ok := AsError(err)
	return ok && (e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500)
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
