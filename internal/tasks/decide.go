package tasks

import (
	"context"

	"github.com/shaiso/permitflow/internal/domain"
	"github.com/shaiso/permitflow/internal/phase"
	"github.com/shaiso/permitflow/internal/worker"
)

// CheckDecision проверяет, принято ли окончательное решение.
//
// FINAL решение или статус CASE_DECIDED/DECISION_EXECUTED дают
// finalDecision=true; иначе дело ждёт handläggare (WAITING). CANCEL
// переводит дело в CANCELED.
func (h *Handlers) CheckDecision(ctx context.Context, task *domain.Task) (*worker.Result, error) {
	errand, ref, err := h.load(ctx, task)
	if err != nil {
		return nil, err
	}

	extras := phase.Read(errand.ExtraParameters)
	state := extras.State()

	if state.IsCanceled() {
		if err := h.cancel(ctx, ref, errand); err != nil {
			return nil, err
		}
		return worker.NewResult(
			OutFinalDecision, false,
			OutIsApproved, false,
			OutPhaseAction, domain.PhaseActionCancel,
		), nil
	}

	final := errand.FinalDecision()
	if final != nil || errand.HasStatus(domain.StatusCaseDecided, domain.StatusDecisionExecuted) {
		approved := final != nil && final.DecisionOutcome == domain.DecisionOutcomeApproval
		h.logger(ctx).Info("final decision found", "approved", approved)
		return worker.NewResult(
			OutFinalDecision, true,
			OutIsApproved, approved,
			OutPhaseAction, extras.Action(),
		), nil
	}

	if err := h.transition(ctx, ref, errand, domain.Waiting(state.Mode()), nil); err != nil {
		return nil, err
	}
	return worker.NewResult(
		OutFinalDecision, false,
		OutIsApproved, false,
		OutPhaseAction, extras.Action(),
	), nil
}
