package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/permitflow/internal/telemetry"
)

const (
	defaultRetention = 30 * 24 * time.Hour
	defaultCron      = "0 3 * * *"
)

// Purger удаляет записи журнала старше before.
type Purger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// Scheduler — периодическая чистка журнала.
type Scheduler struct {
	journal   Purger
	retention time.Duration
	cronExpr  string
	loc       *time.Location
	metrics   *telemetry.Metrics
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	nextDue time.Time
}

// Config — конфигурация Scheduler.
type Config struct {
	Journal Purger

	// Retention — сколько хранить записи (default: 30 дней).
	Retention time.Duration

	// Cron — расписание чистки (default: "0 3 * * *").
	Cron string

	// Timezone — часовой пояс расписания (default: UTC).
	Timezone string

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
	Now     func() time.Time
}

// New создаёт Scheduler. Некорректное cron-выражение — ошибка.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Journal == nil {
		return nil, fmt.Errorf("scheduler: journal is required")
	}

	expr := cfg.Cron
	if expr == "" {
		expr = defaultCron
	}
	if err := ValidateCronExpr(expr); err != nil {
		return nil, err
	}

	retention := cfg.Retention
	if retention <= 0 {
		retention = defaultRetention
	}

	loc := time.UTC
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
		}
		loc = l
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Scheduler{
		journal:   cfg.Journal,
		retention: retention,
		cronExpr:  expr,
		loc:       loc,
		metrics:   cfg.Metrics,
		logger:    logger,
		now:       now,
	}, nil
}

// Tick выполняет чистку, если подошло время по расписанию.
//
// Первый вызов только вычисляет время следующего запуска.
// Ошибка чистки не сдвигает расписание: следующий тик повторит попытку.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nextDue.IsZero() {
		next, err := CalculateNextDue(s.cronExpr, s.loc, now)
		if err != nil {
			return err
		}
		s.nextDue = next
		s.logger.Debug("journal sweep scheduled", "next_due", next)
		return nil
	}

	if now.Before(s.nextDue) {
		return nil
	}

	if _, err := s.Sweep(ctx, now); err != nil {
		return err
	}

	next, err := CalculateNextDue(s.cronExpr, s.loc, now)
	if err != nil {
		return err
	}
	s.nextDue = next
	return nil
}

// Sweep удаляет записи старше now - retention.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) (int64, error) {
	before := now.Add(-s.retention)

	n, err := s.journal.Purge(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("purge journal: %w", err)
	}
	s.metrics.Purged(n)

	s.logger.Info("journal sweep completed",
		"before", before,
		"purged", n,
	)
	return n, nil
}

// NextDue возвращает время следующей чистки (zero — ещё не вычислено).
func (s *Scheduler) NextDue() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextDue
}

// Run вызывает Tick каждые interval до отмены ctx.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	if err := s.Tick(ctx); err != nil {
		s.logger.Error("journal sweep tick failed", "error", err)
	}

	tk := time.NewTicker(interval)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			if err := s.Tick(ctx); err != nil {
				s.logger.Error("journal sweep tick failed", "error", err)
			}
		}
	}
}
