// Package api содержит служебный HTTP сервер воркера.
//
// Структура:
//   - handler.go         — Handler с DI (воркер, журнал, case-data, logger)
//   - routes.go          — регистрация маршрутов
//   - middleware.go      — middleware (logging, recovery)
//   - response.go        — унифицированные JSON-ответы и обработка ошибок
//   - dto.go             — Data Transfer Objects
//   - health_handler.go  — /healthz, /readyz
//   - worker_handler.go  — /api/v1/topics, /api/v1/workers
//   - journal_handler.go — /api/v1/journal
//   - errand_handler.go  — /api/v1/errands/{id}
//
// API не меняет дела: только диагностика, пробуждение опроса и чистка журнала.
package api
