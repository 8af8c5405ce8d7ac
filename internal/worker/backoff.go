package worker

import (
	"math"
	"time"
)

// Backoff — экспоненциальная задержка опроса engine.
//
// Применяется, когда fetch-and-lock вернул ошибку или пустой ответ:
// delay = Initial * Factor^(attempt-1), не больше Max.
type Backoff struct {
	Initial time.Duration `mapstructure:"initial" yaml:"initial"`
	Factor  float64       `mapstructure:"factor" yaml:"factor"`
	Max     time.Duration `mapstructure:"max" yaml:"max"`
}

// DefaultBackoff — 500ms, ×2, не больше минуты.
func DefaultBackoff() Backoff {
	return Backoff{Initial: 500 * time.Millisecond, Factor: 2, Max: time.Minute}
}

func (b Backoff) withDefaults() Backoff {
	d := DefaultBackoff()
	if b.Initial <= 0 {
		b.Initial = d.Initial
	}
	if b.Factor < 1 {
		b.Factor = d.Factor
	}
	if b.Max <= 0 {
		b.Max = d.Max
	}
	if b.Max < b.Initial {
		b.Max = b.Initial
	}
	return b
}

// Delay возвращает задержку для attempt-й подряд неудачной выборки.
// attempt <= 0 — без задержки.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	b = b.withDefaults()

	delay := float64(b.Initial) * math.Pow(b.Factor, float64(attempt-1))
	if delay >= float64(b.Max) || math.IsInf(delay, 1) {
		return b.Max
	}
	return time.Duration(delay)
}
