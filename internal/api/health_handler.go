package api

import (
	"context"
	"net/http"
	"time"
)

const readyTimeout = 2 * time.Second

// Healthz — процесс жив.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz проверяет журнал и RabbitMQ.
// GET /readyz
//
// RabbitMQ не обязателен: без него воркер работает только опросом,
// поэтому его отсутствие отражается в checks, но не делает сервис неготовым.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Checks: map[string]string{}}
	status := http.StatusOK

	if h.journal != nil {
		if err := h.journal.Ping(ctx); err != nil {
			h.logger.Warn("journal not ready", "error", err)
			resp.Checks["journal"] = err.Error()
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Checks["journal"] = "ok"
		}
	}

	switch {
	case h.broker == nil:
		resp.Checks["rabbitmq"] = "disabled"
	case h.broker.IsConnected():
		resp.Checks["rabbitmq"] = "ok"
	default:
		resp.Checks["rabbitmq"] = "reconnecting"
	}

	JSON(w, status, resp)
}
