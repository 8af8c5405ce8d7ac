package tasks

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shaiso/permitflow/internal/client"
	"github.com/shaiso/permitflow/internal/decision"
	"github.com/shaiso/permitflow/internal/domain"
	"github.com/shaiso/permitflow/internal/phase"
	"github.com/shaiso/permitflow/internal/worker"
)

// Ключи фактов rule engine.
const (
	factCaseType           = "type"
	factApplicantPersonID  = "stakeholders.applicant.personid"
	factAttachmentCategory = "attachment."
)

// ExecuteRules собирает факты по делу и вложениям и применяет правила.
// Ответ rule engine уходит в процесс как ruleEngineResponse.
func (h *Handlers) ExecuteRules(ctx context.Context, task *domain.Task) (*worker.Result, error) {
	if h.deps.Rules == nil {
		return nil, fmt.Errorf("%w: rule engine", ErrMissingDependency)
	}

	errand, ref, err := h.load(ctx, task)
	if err != nil {
		return nil, err
	}
	if errand.CaseType == "" {
		return nil, domain.NewProblem(domain.KindNoCaseType, "errand %s", errand.ErrandNumber)
	}

	attachments, err := h.deps.CaseData.ListAttachments(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("list attachments of errand %s: %w", ref, err)
	}

	req := client.RuleRequest{
		Context: client.RuleContextParkingPermit,
		Facts:   facts(errand, attachments),
	}
	resp, err := h.deps.Rules.Evaluate(ctx, errand.MunicipalityID, req)
	if err != nil {
		return nil, fmt.Errorf("evaluate rules: %w", err)
	}

	h.logger(ctx).Info("rules evaluated",
		"facts", len(req.Facts),
		"results", len(resp.Results),
		"value", decision.Aggregate(*resp).Value,
	)
	return worker.NewResult(OutRuleEngineResponse, resp), nil
}

// facts строит факты: тип дела, заявитель, прикладные extraParameters
// (без process.*) и категории вложений.
func facts(errand *domain.Errand, attachments []domain.Attachment) []client.Fact {
	result := []client.Fact{{Key: factCaseType, Value: errand.CaseType}}

	if applicant := errand.Applicant(); applicant != nil && applicant.PersonID != "" {
		result = append(result, client.Fact{Key: factApplicantPersonID, Value: applicant.PersonID})
	}

	for _, p := range errand.ExtraParameters {
		if strings.HasPrefix(p.Key, "process.") || len(p.Values) == 0 {
			continue
		}
		result = append(result, client.Fact{Key: p.Key, Value: strings.Join(p.Values, ",")})
	}

	categories := make(map[string]struct{}, len(attachments))
	for _, a := range attachments {
		if a.Category != "" {
			categories[strings.ToLower(a.Category)] = struct{}{}
		}
	}
	names := make([]string, 0, len(categories))
	for c := range categories {
		names = append(names, c)
	}
	sort.Strings(names)
	for _, c := range names {
		result = append(result, client.Fact{Key: factAttachmentCategory + c, Value: "true"})
	}
	return result
}

// ConstructDecision добавляет решение по ruleEngineResponse.
//
// Режим AUTOMATIC даёт FINAL, иначе RECOMMENDED. Если такое же решение
// (тип, исход, описание) уже есть, повторно не добавляется.
func (h *Handlers) ConstructDecision(ctx context.Context, task *domain.Task) (*worker.Result, error) {
	resp, err := domain.DecodeVariable[client.RuleResponse](task, VarRuleEngineResult)
	if err != nil {
		return nil, err
	}

	errand, ref, err := h.load(ctx, task)
	if err != nil {
		return nil, err
	}

	automatic := phase.Read(errand.ExtraParameters).Action() == domain.PhaseActionAutomatic
	d := decision.Synthesize(decision.Aggregate(resp), automatic, h.deps.Texts.Decision(), h.deps.Now().UTC())

	logger := h.logger(ctx)
	if hasDecision(errand, d) {
		logger.Info("decision already exists, skipping",
			"decision_type", d.DecisionType,
			"decision_outcome", d.DecisionOutcome,
		)
		return nil, nil
	}

	if err := h.deps.CaseData.AddDecision(ctx, ref, d); err != nil {
		return nil, fmt.Errorf("add decision to errand %s: %w", ref, err)
	}
	logger.Info("decision added",
		"decision_type", d.DecisionType,
		"decision_outcome", d.DecisionOutcome,
	)
	return nil, nil
}

func hasDecision(errand *domain.Errand, d domain.Decision) bool {
	for _, existing := range errand.Decisions {
		if existing.DecisionType == d.DecisionType &&
			existing.DecisionOutcome == d.DecisionOutcome &&
			existing.Description == d.Description {
			return true
		}
	}
	return false
}
