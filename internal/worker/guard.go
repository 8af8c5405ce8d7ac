package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shaiso/permitflow/internal/client"
	"github.com/shaiso/permitflow/internal/journal"
	"github.com/shaiso/permitflow/internal/telemetry"
)

// DefaultDuplicateCodes — коды ошибок, означающие «уже создано», по системам.
func DefaultDuplicateCodes() map[string][]string {
	return map[string][]string{
		"rpa":          {"1016", "Duplicate", "DuplicateItem"},
		"party-assets": {"ALREADY_EXISTS"},
	}
}

// DuplicateGuard поглощает ошибки повторной отправки.
//
// Конфликт 409 с известным кодом дубликата считается успехом: эффект уже
// применён предыдущей доставкой той же задачи. Для систем без такого кода
// используется журнал эффектов.
type DuplicateGuard struct {
	codes   map[string][]string
	journal journal.Store
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// GuardConfig — параметры DuplicateGuard.
type GuardConfig struct {
	// Codes — коды дубликатов по системам (nil — DefaultDuplicateCodes).
	Codes   map[string][]string
	Journal journal.Store
	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// NewDuplicateGuard создаёт guard.
func NewDuplicateGuard(cfg GuardConfig) *DuplicateGuard {
	codes := cfg.Codes
	if codes == nil {
		codes = DefaultDuplicateCodes()
	}
	store := cfg.Journal
	if store == nil {
		store = journal.NewMemoryStore()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DuplicateGuard{codes: codes, journal: store, metrics: cfg.Metrics, logger: logger}
}

// IsDuplicate проверяет, что err — конфликт с известным кодом дубликата.
func (g *DuplicateGuard) IsDuplicate(err error) bool {
	if !client.IsConflict(err) {
		return false
	}
	apiErr, _ := client.AsError(err)
	known := g.codes[apiErr.System]
	for _, code := range apiErr.Problem.Codes() {
		for _, k := range known {
			if strings.EqualFold(code, k) {
				return true
			}
		}
	}
	return false
}

// Absorb возвращает nil для дубликата, иначе err без изменений.
func (g *DuplicateGuard) Absorb(ctx context.Context, err error) error {
	if err == nil || !g.IsDuplicate(err) {
		return err
	}
	apiErr, _ := client.AsError(err)
	telemetry.FromContext(ctx).Info("duplicate submission absorbed",
		"system", apiErr.System,
		"path", apiErr.Path,
		"codes", apiErr.Problem.Codes(),
	)
	g.metrics.DuplicateAbsorbed(apiErr.System)
	return nil
}

// Once выполняет эффект без кода дубликата не более одного раза на key.
// Возвращает ссылку на результат (например, messageId).
func (g *DuplicateGuard) Once(ctx context.Context, key journal.Key, system string, effect func(ctx context.Context) (string, error)) (string, error) {
	ref, replayed, err := journal.Once(ctx, g.journal, key, effect)
	if err != nil {
		return ref, err
	}
	if replayed {
		telemetry.FromContext(ctx).Info("side effect already recorded, skipping",
			"system", system,
			"effect", key.Effect,
			"reference", ref,
		)
		g.metrics.DuplicateAbsorbed(system)
	}
	return ref, nil
}

// Recorded сообщает, записан ли уже эффект key, и возвращает его ссылку.
func (g *DuplicateGuard) Recorded(ctx context.Context, key journal.Key) (string, bool, error) {
	entry, err := g.journal.Get(ctx, key)
	switch {
	case err == nil:
		return entry.Reference, true, nil
	case errors.Is(err, journal.ErrNotFound):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("journal lookup %s: %w", key, err)
	}
}
