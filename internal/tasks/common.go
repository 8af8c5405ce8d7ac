package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/permitflow/internal/client"
	"github.com/shaiso/permitflow/internal/domain"
	"github.com/shaiso/permitflow/internal/phase"
	"github.com/shaiso/permitflow/internal/telemetry"
)

// errandRef собирает адрес дела из переменных задачи.
func (h *Handlers) errandRef(task *domain.Task) (client.ErrandRef, error) {
	id, err := task.ErrandID()
	if err != nil {
		return client.ErrandRef{}, err
	}

	ref := client.ErrandRef{
		ID:             id,
		MunicipalityID: h.deps.MunicipalityID,
		Namespace:      h.deps.Namespace,
	}
	if v, ok := task.StringVariable(domain.VarMunicipalityID); ok && v != "" {
		ref.MunicipalityID = v
	}
	if v, ok := task.StringVariable(domain.VarNamespace); ok && v != "" {
		ref.Namespace = v
	}
	return ref, nil
}

// load читает дело задачи.
func (h *Handlers) load(ctx context.Context, task *domain.Task) (*domain.Errand, client.ErrandRef, error) {
	ref, err := h.errandRef(task)
	if err != nil {
		return nil, ref, err
	}
	errand, err := h.deps.CaseData.GetErrand(ctx, ref)
	if err != nil {
		return nil, ref, fmt.Errorf("get errand %s: %w", ref, err)
	}
	if errand.MunicipalityID == "" {
		errand.MunicipalityID = ref.MunicipalityID
	}
	return errand, ref, nil
}

// transition записывает состояние процесса в extraParameters дела.
// Patch не отправляется, если коллекция не изменилась.
func (h *Handlers) transition(ctx context.Context, ref client.ErrandRef, errand *domain.Errand, state domain.ProcessState, display *phase.Display) error {
	updated, err := phase.Apply(errand.ExtraParameters, state, display)
	if err != nil {
		return err
	}
	return h.patchExtras(ctx, ref, errand, updated)
}

func (h *Handlers) patchExtras(ctx context.Context, ref client.ErrandRef, errand *domain.Errand, updated []domain.ExtraParameter) error {
	logger := h.logger(ctx)
	if phase.Equal(errand.ExtraParameters, updated) {
		logger.Debug("phase extras unchanged, skipping patch")
		return nil
	}

	if err := h.deps.CaseData.PatchErrand(ctx, ref, domain.ErrandPatch{ExtraParameters: updated}); err != nil {
		return fmt.Errorf("patch errand %s: %w", ref, err)
	}
	errand.ExtraParameters = updated

	e := phase.Read(updated)
	logger.Info("phase extras updated",
		"phase", errand.Phase,
		"phase_status", deref(e.PhaseStatus),
		"phase_action", e.Action(),
	)
	return nil
}

// cancel переводит дело в CANCELED с подписью фазы.
func (h *Handlers) cancel(ctx context.Context, ref client.ErrandRef, errand *domain.Errand) error {
	return h.transition(ctx, ref, errand, domain.Canceled(), phase.ShowDisplay(h.deps.Texts.DisplayPhase(DisplayCanceled)))
}

func (h *Handlers) logger(ctx context.Context) *slog.Logger {
	return telemetry.FromContext(ctx)
}

func (h *Handlers) applicant(errand *domain.Errand) (*domain.Stakeholder, error) {
	applicant := errand.Applicant()
	if applicant == nil {
		return nil, domain.NewProblem(domain.KindNoApplicant, "errand %s", errand.ErrandNumber)
	}
	if applicant.PersonID == "" {
		return nil, domain.NewProblem(domain.KindNoPersonID, "errand %s", errand.ErrandNumber)
	}
	return applicant, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// appendStatus добавляет статус, если последний статус дела не такой же.
func (h *Handlers) appendStatus(ctx context.Context, ref client.ErrandRef, errand *domain.Errand, statusType, description string) error {
	if last := errand.LatestStatus(); last != nil && last.StatusType == statusType {
		h.logger(ctx).Debug("status already set", "status", statusType)
		return nil
	}

	now := h.deps.Now().UTC()
	status := domain.Status{StatusType: statusType, Description: description, Created: &now}
	if err := h.deps.CaseData.AddStatus(ctx, ref, status); err != nil {
		return fmt.Errorf("add status %s to errand %s: %w", statusType, ref, err)
	}
	errand.Statuses = append(errand.Statuses, status)

	h.logger(ctx).Info("errand status added", "status", statusType)
	return nil
}
