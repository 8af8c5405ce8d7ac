package api

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaiso/permitflow/internal/client"
	"github.com/shaiso/permitflow/internal/domain"
	"github.com/shaiso/permitflow/internal/journal"
	"github.com/shaiso/permitflow/internal/worker"
)

// Workers — состояние и пробуждение опроса.
type Workers interface {
	Status() []worker.TopicStatus
	Wake(topic string) bool
}

// Broker — RabbitMQ (опционально).
type Broker interface {
	IsConnected() bool
}

// Notifier публикует task.available для остальных экземпляров.
type Notifier interface {
	PublishTaskAvailable(ctx context.Context, topic string) error
}

// Errands читает дела из case-data.
type Errands interface {
	GetErrand(ctx context.Context, ref client.ErrandRef) (*domain.Errand, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	workers        Workers
	journal        journal.Store
	broker         Broker
	notifier       Notifier
	errands        Errands
	gatherer       prometheus.Gatherer
	municipalityID string
	namespace      string
	logger         *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Workers  Workers
	Journal  journal.Store
	Broker   Broker
	Notifier Notifier
	Errands  Errands

	// Gatherer — источник /metrics (default: prometheus.DefaultGatherer).
	Gatherer prometheus.Gatherer

	MunicipalityID string
	Namespace      string
	Logger         *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{
		workers:        cfg.Workers,
		journal:        cfg.Journal,
		broker:         cfg.Broker,
		notifier:       cfg.Notifier,
		errands:        cfg.Errands,
		gatherer:       gatherer,
		municipalityID: cfg.MunicipalityID,
		namespace:      cfg.Namespace,
		logger:         logger,
	}
}
