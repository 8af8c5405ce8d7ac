package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shaiso/permitflow/internal/domain"
)

// ParseLevel разбирает уровень логирования: DEBUG, INFO, WARN, ERROR.
// Регистр не важен, неизвестное значение — INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger создаёт логгер с JSON ("json", по умолчанию) или text форматом.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// SetupLogger инициализирует глобальный логгер.
//
// Пустые level/format берутся из LOG_LEVEL и LOG_FORMAT.
func SetupLogger(level, format string) *slog.Logger {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if format == "" {
		format = os.Getenv("LOG_FORMAT")
	}

	logger := NewLogger(os.Stdout, level, format)
	slog.SetDefault(logger)
	return logger
}

type ctxKey string

// CtxLogger — ключ логгера в контексте.
const CtxLogger ctxKey = "logger"

// WithLogger кладёт логгер в контекст.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, CtxLogger, logger)
}

// FromContext достаёт логгер из контекста, иначе глобальный.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(CtxLogger).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithTask добавляет к логгеру атрибуты задачи.
func WithTask(logger *slog.Logger, task *domain.Task) *slog.Logger {
	attrs := []any{
		"task_id", task.ID,
		"topic", task.TopicName,
	}
	if task.BusinessKey != "" {
		attrs = append(attrs, "business_key", task.BusinessKey)
	}
	if n, ok := task.StringVariable(domain.VarCaseNumber); ok {
		attrs = append(attrs, "errand_number", n)
	}
	return logger.With(attrs...)
}

// WithErrand добавляет номер дела.
func WithErrand(logger *slog.Logger, errandNumber string) *slog.Logger {
	return logger.With("errand_number", errandNumber)
}
