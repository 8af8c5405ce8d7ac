package tasks

import (
	"context"
	"fmt"

	"github.com/shaiso/permitflow/internal/domain"
	"github.com/shaiso/permitflow/internal/phase"
	"github.com/shaiso/permitflow/internal/worker"
)

// VerifyAdministrator проверяет, что делу назначен handläggare.
//
// CANCEL → phaseStatus CANCELED и подпись "Canceled".
// Нет ADMINISTRATOR → phaseStatus WAITING, режим сохраняется.
func (h *Handlers) VerifyAdministrator(ctx context.Context, task *domain.Task) (*worker.Result, error) {
	errand, ref, err := h.load(ctx, task)
	if err != nil {
		return nil, err
	}

	state := phase.Read(errand.ExtraParameters).State()
	if state.IsCanceled() {
		if err := h.cancel(ctx, ref, errand); err != nil {
			return nil, err
		}
		return worker.NewResult(OutAssignedToAdministrator, false), nil
	}

	if errand.StakeholderWithRole(domain.RoleAdministrator) == nil {
		if err := h.transition(ctx, ref, errand, domain.Waiting(state.Mode()), nil); err != nil {
			return nil, err
		}
		return worker.NewResult(OutAssignedToAdministrator, false), nil
	}

	return worker.NewResult(OutAssignedToAdministrator, true), nil
}

// VerifyResident проверяет регистрацию заявителя в муниципалитете дела.
// Переменная applicantNotResidentOfMunicipality выставляется только при
// отрицательном результате.
func (h *Handlers) VerifyResident(ctx context.Context, task *domain.Task) (*worker.Result, error) {
	if h.deps.Citizens == nil {
		return nil, fmt.Errorf("%w: citizen registry", ErrMissingDependency)
	}

	errand, _, err := h.load(ctx, task)
	if err != nil {
		return nil, err
	}
	applicant, err := h.applicant(errand)
	if err != nil {
		return nil, err
	}

	citizen, err := h.deps.Citizens.GetCitizen(ctx, errand.MunicipalityID, applicant.PersonID)
	if err != nil {
		return nil, fmt.Errorf("get citizen: %w", err)
	}

	if citizen.IsResidentOf(errand.MunicipalityID) {
		return worker.NewResult(), nil
	}

	h.logger(ctx).Info("applicant is not resident of municipality", "municipality_id", errand.MunicipalityID)
	return worker.NewResult(OutNotResident, true), nil
}

// CheckPhaseAction сообщает phaseAction дела; CANCEL фиксирует отзыв.
func (h *Handlers) CheckPhaseAction(ctx context.Context, task *domain.Task) (*worker.Result, error) {
	errand, ref, err := h.load(ctx, task)
	if err != nil {
		return nil, err
	}

	extras := phase.Read(errand.ExtraParameters)
	canceled := extras.State().IsCanceled()
	if canceled {
		if err := h.cancel(ctx, ref, errand); err != nil {
			return nil, err
		}
	}

	return worker.NewResult(
		OutPhaseAction, extras.Action(),
		OutIsCanceled, canceled,
	), nil
}
