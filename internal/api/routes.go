package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Probes и метрики без логирования: их дёргают каждые несколько секунд
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	mux.Handle("GET /metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	// Topics
	mux.Handle("GET /api/v1/topics", chain(http.HandlerFunc(h.ListTopics)))
	mux.Handle("GET /api/v1/workers", chain(http.HandlerFunc(h.ListTopics)))
	mux.Handle("POST /api/v1/topics/{topic}/wake", chain(http.HandlerFunc(h.WakeTopic)))

	// Journal
	mux.Handle("GET /api/v1/journal/{errandNumber}", chain(http.HandlerFunc(h.ListJournal)))
	mux.Handle("DELETE /api/v1/journal", chain(http.HandlerFunc(h.PurgeJournal)))

	// Errands
	mux.Handle("GET /api/v1/errands/{id}", chain(http.HandlerFunc(h.GetErrandState)))
}
