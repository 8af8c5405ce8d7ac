package decision

import (
	"github.com/shaiso/permitflow/internal/client"
	"github.com/shaiso/permitflow/internal/domain"
)

// Aggregate сводит ответ rule engine к одному RuleResult.
//
//   - есть FAIL → FAIL, детали только от FAIL-правил;
//   - есть PASS и нет FAIL → PASS, детали от PASS-правил;
//   - только NOT_APPLICABLE или пусто → значение NOT_APPLICABLE без деталей.
func Aggregate(resp client.RuleResponse) domain.RuleResult {
	var passed, failed []*domain.RuleDetail
	var anyPass, anyFail bool

	for _, r := range resp.Results {
		switch r.Value {
		case domain.RuleValueFail:
			anyFail = true
			failed = append(failed, detailsOf(r)...)
		case domain.RuleValuePass:
			anyPass = true
			passed = append(passed, detailsOf(r)...)
		}
	}

	switch {
	case anyFail:
		return domain.RuleResult{Value: domain.RuleValueFail, Details: failed}
	case anyPass:
		return domain.RuleResult{Value: domain.RuleValuePass, Details: passed}
	default:
		return domain.RuleResult{Value: domain.RuleValueNotApplicable}
	}
}

func detailsOf(r client.RuleOutcome) []*domain.RuleDetail {
	out := make([]*domain.RuleDetail, 0, len(r.Details))
	for _, d := range r.Details {
		if d == nil {
			continue
		}
		out = append(out, &domain.RuleDetail{Rule: d.Rule, Description: d.Description})
	}
	return out
}
