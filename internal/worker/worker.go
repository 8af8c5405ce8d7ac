package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shaiso/permitflow/internal/domain"
	"github.com/shaiso/permitflow/internal/mq"
	"github.com/shaiso/permitflow/internal/telemetry"
)

const (
	defaultPrefetch     = 10
	defaultDrainTimeout = 30 * time.Second
)

// Engine — операции workflow engine, нужные воркеру.
type Engine interface {
	IncidentReporter
	FetchAndLock(ctx context.Context, topics ...string) ([]*domain.Task, error)
	Complete(ctx context.Context, taskID string, variables map[string]any) error
}

// OutcomePublisher публикует итоги задач. Опционален.
type OutcomePublisher interface {
	PublishTaskCompleted(ctx context.Context, payload mq.TaskOutcomePayload) error
	PublishTaskFailed(ctx context.Context, payload mq.TaskOutcomePayload) error
}

// Worker опрашивает engine по каждому зарегистрированному топику
// и выполняет задачи через общий скелет.
//
// На каждый топик — отдельная горутина опроса. Задачи одного топика
// выполняются последовательно; параллелизм между топиками.
type Worker struct {
	engine    Engine
	registry  *Registry
	failures  *FailureHandler
	publisher OutcomePublisher
	conn      *mq.Connection
	consumer  *mq.Consumer
	backoff   Backoff
	drain     time.Duration
	metrics   *telemetry.Metrics
	logger    *slog.Logger

	wake  map[string]chan struct{}
	stats map[string]*topicStats

	mu         sync.Mutex
	started    bool
	stopPoll   context.CancelFunc
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Worker.
type Config struct {
	Engine   Engine
	Registry *Registry

	// Publisher — итоги задач в RabbitMQ (опционально).
	Publisher OutcomePublisher

	// Conn — если задан, воркер слушает task.available и будит опрос топика.
	Conn *mq.Connection

	Backoff Backoff

	// DrainTimeout — сколько Stop ждёт текущие задачи, прежде чем отменить
	// их контекст (0 — 30s).
	DrainTimeout time.Duration

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// New создаёт Worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	drain := cfg.DrainTimeout
	if drain <= 0 {
		drain = defaultDrainTimeout
	}

	return &Worker{
		engine:    cfg.Engine,
		registry:  registry,
		failures:  NewFailureHandler(cfg.Engine, logger),
		publisher: cfg.Publisher,
		conn:      cfg.Conn,
		backoff:   cfg.Backoff.withDefaults(),
		drain:     drain,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

// Registry возвращает реестр обработчиков.
func (w *Worker) Registry() *Registry { return w.registry }

// Start запускает опрос по всем топикам и, если есть соединение, consumer
// уведомлений task.available.
//
// ctx ограничивает выполнение задач. Для остановки по сигналу используйте
// Stop: он прекращает опрос и даёт текущим задачам завершиться.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}
	topics := w.registry.Topics()
	if len(topics) == 0 {
		return ErrNoTopics
	}

	runCtx, cancel := context.WithCancel(ctx)
	pollCtx, stopPoll := context.WithCancel(runCtx)
	w.cancelFunc = cancel
	w.stopPoll = stopPoll
	w.started = true

	w.wake = make(map[string]chan struct{}, len(topics))
	w.stats = make(map[string]*topicStats, len(topics))
	for _, topic := range topics {
		w.wake[topic] = make(chan struct{}, 1)
		w.stats[topic] = &topicStats{}
	}

	w.logger.Info("starting worker",
		"topics", topics,
		"backoff_initial", w.backoff.Initial,
		"backoff_max", w.backoff.Max,
	)

	if w.conn != nil {
		w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueTasksAvailable),
			Handler:  w.handleTaskAvailable,
			Prefetch: defaultPrefetch,
		})
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.consumer.Start(pollCtx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("task.available consumer error", "error", err)
			}
		}()
	}

	for _, topic := range topics {
		w.wg.Add(1)
		go func(topic string) {
			defer w.wg.Done()
			w.pollLoop(pollCtx, runCtx, topic)
		}(topic)
	}

	w.logger.Info("worker started")
	return nil
}

// Stop прекращает опрос и ждёт завершения текущих задач. Если они не
// уложились в DrainTimeout, их контекст отменяется.
func (w *Worker) Stop() {
	w.mu.Lock()
	stopPoll, cancel := w.stopPoll, w.cancelFunc
	w.mu.Unlock()

	w.logger.Info("stopping worker...", "drain_timeout", w.drain)
	if stopPoll != nil {
		stopPoll()
	}
	if w.consumer != nil {
		w.consumer.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(w.drain):
		w.logger.Warn("drain timeout exceeded, cancelling in-flight tasks")
		if cancel != nil {
			cancel()
		}
		<-done
	}
	if cancel != nil {
		cancel()
	}
	w.logger.Info("worker stopped")
}

// Wake будит опрос топика. Неизвестный топик игнорируется.
func (w *Worker) Wake(topic string) bool {
	w.mu.Lock()
	ch, ok := w.wake[topic]
	w.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- struct{}{}:
	default:
	}
	return true
}

// handleTaskAvailable — обработчик сообщений task.available.
func (w *Worker) handleTaskAvailable(_ context.Context, msg *mq.Message) error {
	payload, err := mq.ParsePayload[mq.TaskAvailablePayload](msg)
	if err != nil {
		w.logger.Error("failed to parse task.available payload", "error", err)
		return mq.ErrReject
	}

	// чужие топики подтверждаем: их опрашивают другие воркеры
	if !w.Wake(payload.Topic) {
		w.logger.Debug("task.available for unregistered topic", "topic", payload.Topic)
	}
	return nil
}

// pollLoop опрашивает engine по одному топику.
//
// ctx управляет опросом, runCtx — выполнением уже полученных задач.
func (w *Worker) pollLoop(ctx, runCtx context.Context, topic string) {
	failures := 0

	for {
		if ctx.Err() != nil {
			return
		}

		n, err := w.poll(ctx, runCtx, topic)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			failures++
			w.logger.Warn("fetch and lock failed", "topic", topic, "attempt", failures, "error", err)
		case n == 0:
			failures++
		default:
			failures = 0
		}

		delay := w.backoff.Delay(failures)
		w.metrics.SetBackoff(topic, delay)
		if delay == 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-w.wake[topic]:
			failures = 0
		case <-time.After(delay):
		}
	}
}

// poll выполняет один fetch-and-lock и обрабатывает полученные задачи.
func (w *Worker) poll(ctx, runCtx context.Context, topic string) (int, error) {
	tasks, err := w.engine.FetchAndLock(ctx, topic)
	if err != nil {
		return 0, err
	}

	st := w.stats[topic]
	st.lastPoll.Store(time.Now().UnixNano())

	for _, task := range tasks {
		if ctx.Err() != nil {
			// незавершённые задачи вернутся после истечения lock
			return len(tasks), nil
		}
		outcome := w.execute(runCtx, task)
		st.record(outcome)
	}
	return len(tasks), nil
}

// TopicStatus — состояние опроса топика.
type TopicStatus struct {
	Topic     string    `json:"topic"`
	Completed int64     `json:"completed"`
	Incidents int64     `json:"incidents"`
	Lost      int64     `json:"lost"`
	LastPoll  time.Time `json:"last_poll,omitempty"`
}

type topicStats struct {
	completed atomic.Int64
	incidents atomic.Int64
	lost      atomic.Int64
	lastPoll  atomic.Int64
}

func (s *topicStats) record(outcome string) {
	switch outcome {
	case telemetry.OutcomeCompleted:
		s.completed.Add(1)
	case telemetry.OutcomeIncident:
		s.incidents.Add(1)
	default:
		s.lost.Add(1)
	}
}

// Status возвращает состояние по всем топикам. До Start — только имена.
func (w *Worker) Status() []TopicStatus {
	w.mu.Lock()
	stats := w.stats
	w.mu.Unlock()

	topics := w.registry.Topics()
	out := make([]TopicStatus, 0, len(topics))
	for _, topic := range topics {
		ts := TopicStatus{Topic: topic}
		if st, ok := stats[topic]; ok {
			ts.Completed = st.completed.Load()
			ts.Incidents = st.incidents.Load()
			ts.Lost = st.lost.Load()
			if n := st.lastPoll.Load(); n > 0 {
				ts.LastPoll = time.Unix(0, n).UTC()
			}
		}
		out = append(out, ts)
	}
	return out
}
