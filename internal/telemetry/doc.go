// Package telemetry — наблюдаемость воркера.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики permitflow_*
package telemetry
