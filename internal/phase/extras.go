package phase

import (
	"github.com/shaiso/permitflow/internal/domain"
)

// Extras — типизированное представление extraParameters дела.
// nil-поле означает, что ключ отсутствует или пуст.
type Extras struct {
	PhaseStatus  *string
	PhaseAction  *string
	DisplayPhase *string

	PermitNumber      *string
	PermitStatus      *string
	PermitExpiration  *string
	ApplicantCapacity *string
	ApplicationReason *string
	PoliceReport      *string
}

// Read разбирает extraParameters дела.
func Read(params []domain.ExtraParameter) Extras {
	var e Extras
	fields := map[string]**string{
		domain.KeyPhaseStatus:       &e.PhaseStatus,
		domain.KeyPhaseAction:       &e.PhaseAction,
		domain.KeyDisplayPhase:      &e.DisplayPhase,
		domain.KeyPermitNumber:      &e.PermitNumber,
		domain.KeyPermitStatus:      &e.PermitStatus,
		domain.KeyPermitExpiration:  &e.PermitExpiration,
		domain.KeyApplicantCapacity: &e.ApplicantCapacity,
		domain.KeyApplicationReason: &e.ApplicationReason,
		domain.KeyPoliceReport:      &e.PoliceReport,
	}
	for _, p := range params {
		field, ok := fields[p.Key]
		if !ok || len(p.Values) == 0 || p.Values[0] == "" {
			continue
		}
		v := p.Values[0]
		*field = &v
	}
	return e
}

// State возвращает состояние процесса.
func (e Extras) State() domain.ProcessState {
	return domain.ParseProcessState(deref(e.PhaseStatus), deref(e.PhaseAction))
}

// Action возвращает process.phaseAction; отсутствие — UNKNOWN.
func (e Extras) Action() string {
	if e.PhaseAction == nil {
		return domain.PhaseActionUnknown
	}
	return *e.PhaseAction
}

// HasPermitNumber — номер разрешения уже выдан.
func (e Extras) HasPermitNumber() bool {
	return e.PermitNumber != nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
