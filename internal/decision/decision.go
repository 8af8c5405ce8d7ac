// Package decision строит решение по результату rule engine.
//
// Synthesize — чистая функция: тип, исход и текст решения зависят только
// от результата правил и флага автоматической обработки. Время передаётся
// снаружи.
package decision

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shaiso/permitflow/internal/domain"
)

// Texts — локализованные шаблоны описания решения.
// Каждый префикс содержит ровно один %s для текста деталей.
type Texts struct {
	RecommendedApproval  string `yaml:"recommendedApproval" mapstructure:"recommendedApproval"`
	RecommendedRejection string `yaml:"recommendedRejection" mapstructure:"recommendedRejection"`
	FinalApproval        string `yaml:"finalApproval" mapstructure:"finalApproval"`
	FinalRejection       string `yaml:"finalRejection" mapstructure:"finalRejection"`

	// Conjunction заменяет последний ", " в списке деталей.
	Conjunction string `yaml:"conjunction" mapstructure:"conjunction"`
}

// DefaultTexts возвращает английские тексты по умолчанию.
func DefaultTexts() Texts {
	return Texts{
		RecommendedApproval:  "Recommended decision is approval. %s",
		RecommendedRejection: "Recommended decision is rejection. %s",
		FinalApproval:        "Decision is approval. %s",
		FinalRejection:       "Decision is rejection. %s",
		Conjunction:          " and ",
	}
}

// ErrInvalidPrefix — префикс не содержит ровно один %s.
var ErrInvalidPrefix = errors.New("invalid decision prefix")

// Validate проверяет, что каждый префикс содержит ровно один %s и
// никаких других глаголов форматирования (%% допустим).
func (t Texts) Validate() error {
	var errs []error
	for _, p := range []struct{ name, value string }{
		{"recommendedApproval", t.RecommendedApproval},
		{"recommendedRejection", t.RecommendedRejection},
		{"finalApproval", t.FinalApproval},
		{"finalRejection", t.FinalRejection},
	} {
		if err := checkPrefix(p.value); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s %q: %v", ErrInvalidPrefix, p.name, p.value, err))
		}
	}
	return errors.Join(errs...)
}

func checkPrefix(prefix string) error {
	placeholders := 0
	for i := 0; i < len(prefix); i++ {
		if prefix[i] != '%' {
			continue
		}
		if i+1 == len(prefix) {
			return errors.New("trailing %")
		}
		i++
		switch prefix[i] {
		case '%':
		case 's':
			placeholders++
		default:
			return fmt.Errorf("unsupported verb %%%c", prefix[i])
		}
	}
	if placeholders != 1 {
		return fmt.Errorf("want exactly one %%s, got %d", placeholders)
	}
	return nil
}

// lastComma находит последний ", " (первая группа жадная).
var lastComma = regexp.MustCompile(`^(.*)(, )(.*)$`)

// Synthesize строит решение.
//
//	automatic=false → RECOMMENDED, automatic=true → FINAL (+DecidedAt)
//	PASS → APPROVAL, иначе → REJECTION
func Synthesize(result domain.RuleResult, automatic bool, texts Texts, now time.Time) domain.Decision {
	approved := result.Value == domain.RuleValuePass

	decisionType := domain.DecisionTypeRecommended
	if automatic {
		decisionType = domain.DecisionTypeFinal
	}

	outcome := domain.DecisionOutcomeRejection
	if approved {
		outcome = domain.DecisionOutcomeApproval
	}

	created := now
	d := domain.Decision{
		DecisionType:    decisionType,
		DecisionOutcome: outcome,
		Description:     Describe(result, automatic, texts),
		Created:         &created,
	}
	if decisionType == domain.DecisionTypeFinal && automatic {
		decidedAt := now
		d.DecidedAt = &decidedAt
	}
	return d
}

// Describe строит текст решения без побочных эффектов.
//
// Пустой список деталей даёт один префикс без хвоста плейсхолдера.
func Describe(result domain.RuleResult, automatic bool, texts Texts) string {
	prefix := texts.prefix(automatic, result.Value == domain.RuleValuePass)

	detail := DetailText(result.Details, texts.Conjunction)
	if detail == "" {
		return strings.TrimSpace(fmt.Sprintf(prefix, ""))
	}
	return fmt.Sprintf(prefix, detail)
}

// DetailText склеивает описания деталей: "A, B and C." с заглавной буквы.
// nil-детали пропускаются.
func DetailText(details []*domain.RuleDetail, conjunction string) string {
	parts := make([]string, 0, len(details))
	for _, d := range details {
		if d == nil {
			continue
		}
		parts = append(parts, d.Description)
	}

	joined := strings.Join(parts, ", ")
	if joined == "" {
		return ""
	}

	replacement := "${1}" + strings.ReplaceAll(conjunction, "$", "$$") + "${3}"
	joined = lastComma.ReplaceAllString(joined, replacement)

	return capitalize(joined) + "."
}

func (t Texts) prefix(automatic, approved bool) string {
	switch {
	case automatic && approved:
		return t.FinalApproval
	case automatic:
		return t.FinalRejection
	case approved:
		return t.RecommendedApproval
	default:
		return t.RecommendedRejection
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
