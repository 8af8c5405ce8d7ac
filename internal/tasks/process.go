package tasks

import (
	"context"
	"fmt"

	"github.com/shaiso/permitflow/internal/domain"
	"github.com/shaiso/permitflow/internal/phase"
	"github.com/shaiso/permitflow/internal/worker"
)

// UpdateErrandPhase переводит дело в фазу из переменной phase.
//
// phaseStatus очищается, phaseAction сохраняется, displayPhase берётся
// из переменной displayPhase (нет переменной — очищается).
func (h *Handlers) UpdateErrandPhase(ctx context.Context, task *domain.Task) (*worker.Result, error) {
	target, ok := task.StringVariable(VarPhase)
	if !ok || target == "" {
		return nil, domain.NewProblem(domain.KindMissingVariable, "%s", VarPhase)
	}

	errand, ref, err := h.load(ctx, task)
	if err != nil {
		return nil, err
	}

	var display *string
	if label, ok := task.StringVariable(VarDisplayPhase); ok && label != "" {
		display = &label
	}

	action := phase.Read(errand.ExtraParameters).Action()
	extras, err := phase.ComputeTransitionWithDisplay(errand.ExtraParameters, nil, &action, display)
	if err != nil {
		return nil, err
	}

	if errand.Phase == target && phase.Equal(errand.ExtraParameters, extras) {
		h.logger(ctx).Debug("errand already in phase", "phase", target)
		return nil, nil
	}

	if err := h.deps.CaseData.PatchErrand(ctx, ref, domain.ErrandPatch{Phase: &target, ExtraParameters: extras}); err != nil {
		return nil, fmt.Errorf("patch errand %s: %w", ref, err)
	}
	h.logger(ctx).Info("errand phase updated", "from", errand.Phase, "to", target)
	return nil, nil
}

// UpdateErrandStatus добавляет статус statusType, если он не последний.
func (h *Handlers) UpdateErrandStatus(ctx context.Context, task *domain.Task) (*worker.Result, error) {
	statusType, ok := task.StringVariable(VarStatusType)
	if !ok || statusType == "" {
		return nil, domain.NewProblem(domain.KindMissingVariable, "%s", VarStatusType)
	}
	description, _ := task.StringVariable(VarStatusDescription)

	errand, ref, err := h.load(ctx, task)
	if err != nil {
		return nil, err
	}
	return nil, h.appendStatus(ctx, ref, errand, statusType, description)
}

// UpdatePhaseStatus выставляет phaseStatus из переменной (WAITING, CANCELED
// или пусто). phaseAction не меняется.
func (h *Handlers) UpdatePhaseStatus(ctx context.Context, task *domain.Task) (*worker.Result, error) {
	raw, _ := task.StringVariable(VarPhaseStatus)

	var status *string
	switch raw {
	case "":
	case domain.PhaseStatusWaiting, domain.PhaseStatusCanceled:
		status = &raw
	default:
		return nil, domain.NewProblem(domain.KindInvalidVariable, "%s=%q", VarPhaseStatus, raw)
	}

	errand, ref, err := h.load(ctx, task)
	if err != nil {
		return nil, err
	}

	action := phase.Read(errand.ExtraParameters).Action()
	updated, err := phase.ComputeTransition(errand.ExtraParameters, status, &action)
	if err != nil {
		return nil, err
	}
	return nil, h.patchExtras(ctx, ref, errand, updated)
}
