package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument — нарушение программного инварианта
// (например, пустой phaseAction в кодировщике переходов).
var ErrInvalidArgument = errors.New("invalid argument")

// ProblemKind — вид нарушения предусловия предметной области.
type ProblemKind string

// Виды нарушений. Набор фиксирован; у каждого вида постоянное сообщение.
const (
	KindNoCaseType          ProblemKind = "NO_CASE_TYPE"
	KindUnsupportedCaseType ProblemKind = "UNSUPPORTED_CASE_TYPE"
	KindNoApplicant         ProblemKind = "NO_APPLICANT"
	KindNoPersonID          ProblemKind = "NO_PERSON_ID"
	KindMissingVariable     ProblemKind = "MISSING_VARIABLE"
	KindInvalidVariable     ProblemKind = "INVALID_VARIABLE"
	KindNoFinalDecision     ProblemKind = "NO_FINAL_DECISION"
	KindNoPermitNumber      ProblemKind = "NO_PERMIT_NUMBER"
	KindInvariant           ProblemKind = "INVARIANT_VIOLATION"
)

var problemMessages = map[ProblemKind]string{
	KindNoCaseType:          "Case type is missing on errand",
	KindUnsupportedCaseType: "Unsupported case type",
	KindNoApplicant:         "Errand has no applicant stakeholder",
	KindNoPersonID:          "Applicant stakeholder has no personId",
	KindMissingVariable:     "Required process variable is missing",
	KindInvalidVariable:     "Process variable has an invalid value",
	KindNoFinalDecision:     "Errand has no final decision",
	KindNoPermitNumber:      "Errand has no permit number",
	KindInvariant:           "Internal invariant violated",
}

// Problem — структурированная ошибка клиентского типа.
//
// Повторная доставка задачи не исправит такую ошибку: нужны исправленные
// данные дела. Problem уходит в Failure Handler как инцидент.
type Problem struct {
	Kind   ProblemKind
	Detail string
}

// NewProblem создаёт Problem с деталями.
func NewProblem(kind ProblemKind, format string, args ...any) *Problem {
	return &Problem{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Message возвращает постоянное сообщение вида.
func (p *Problem) Message() string {
	if msg, ok := problemMessages[p.Kind]; ok {
		return msg
	}
	return string(p.Kind)
}

func (p *Problem) Error() string {
	if p.Detail == "" {
		return p.Message()
	}
	return p.Message() + ": " + p.Detail
}

// Is сравнивает по виду, чтобы работал errors.Is(err, &Problem{Kind: ...}).
func (p *Problem) Is(target error) bool {
	var t *Problem
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == p.Kind
}

// ProblemOf возвращает вид проблемы из цепочки ошибок.
func ProblemOf(err error) (ProblemKind, bool) {
	var p *Problem
	if errors.As(err, &p) {
		return p.Kind, true
	}
	if errors.Is(err, ErrInvalidArgument) {
		return KindInvariant, true
	}
	return "", false
}
