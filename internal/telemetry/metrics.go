package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Исходы обработки задачи для метрики tasks_total.
const (
	OutcomeCompleted = "completed"
	OutcomeIncident  = "incident"
	OutcomeLost      = "lost"
)

// Metrics — метрики воркера.
type Metrics struct {
	TasksTotal         *prometheus.CounterVec
	TaskDuration       *prometheus.HistogramVec
	DuplicatesAbsorbed *prometheus.CounterVec
	FetchBackoff       *prometheus.GaugeVec
	JournalPurged      prometheus.Counter
}

// NewMetrics регистрирует метрики в reg. nil — DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		TasksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "permitflow_tasks_total",
			Help: "Processed external tasks by topic and outcome.",
		}, []string{"topic", "outcome"}),

		TaskDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "permitflow_task_duration_seconds",
			Help:    "Handler execution time.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"topic"}),

		DuplicatesAbsorbed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "permitflow_duplicates_absorbed_total",
			Help: "Side effects recognised as already applied.",
		}, []string{"system"}),

		FetchBackoff: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "permitflow_fetch_backoff_seconds",
			Help: "Current poll backoff per topic.",
		}, []string{"topic"}),

		JournalPurged: f.NewCounter(prometheus.CounterOpts{
			Name: "permitflow_journal_purged_total",
			Help: "Side-effect journal entries removed by retention sweep.",
		}),
	}
}

// ObserveTask учитывает завершённую задачу. Безопасен для nil.
func (m *Metrics) ObserveTask(topic, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.TasksTotal.WithLabelValues(topic, outcome).Inc()
	m.TaskDuration.WithLabelValues(topic).Observe(d.Seconds())
}

// DuplicateAbsorbed учитывает поглощённый дубликат. Безопасен для nil.
func (m *Metrics) DuplicateAbsorbed(system string) {
	if m == nil {
		return
	}
	m.DuplicatesAbsorbed.WithLabelValues(system).Inc()
}

// SetBackoff фиксирует текущую задержку опроса. Безопасен для nil.
func (m *Metrics) SetBackoff(topic string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchBackoff.WithLabelValues(topic).Set(d.Seconds())
}

// Purged учитывает удалённые записи журнала. Безопасен для nil.
func (m *Metrics) Purged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.JournalPurged.Add(float64(n))
}
