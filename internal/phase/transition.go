package phase

import (
	"fmt"

	"github.com/shaiso/permitflow/internal/domain"
)

// ComputeTransition вычисляет новую коллекцию extraParameters.
//
// Удаляет process.phaseStatus и process.phaseAction, затем вставляет их
// заново. nil phaseStatus означает явную очистку (пустой список значений).
// nil phaseAction — ошибка domain.ErrInvalidArgument.
// process.displayPhase не трогается.
//
// Входная коллекция не изменяется.
func ComputeTransition(current []domain.ExtraParameter, phaseStatus, phaseAction *string) ([]domain.ExtraParameter, error) {
	return compute(current, phaseStatus, phaseAction, nil, false)
}

// ComputeTransitionWithDisplay — то же, что ComputeTransition, но также
// заменяет process.displayPhase (nil — пустой список значений).
func ComputeTransitionWithDisplay(current []domain.ExtraParameter, phaseStatus, phaseAction, displayPhase *string) ([]domain.ExtraParameter, error) {
	return compute(current, phaseStatus, phaseAction, displayPhase, true)
}

func compute(current []domain.ExtraParameter, phaseStatus, phaseAction, displayPhase *string, withDisplay bool) ([]domain.ExtraParameter, error) {
	if phaseAction == nil {
		return nil, fmt.Errorf("%w: %s must not be null", domain.ErrInvalidArgument, domain.KeyPhaseAction)
	}

	managed := map[string]bool{
		domain.KeyPhaseStatus: true,
		domain.KeyPhaseAction: true,
	}
	if withDisplay {
		managed[domain.KeyDisplayPhase] = true
	}

	result := make([]domain.ExtraParameter, 0, len(current)+3)
	for _, p := range current {
		if managed[p.Key] {
			continue
		}
		result = append(result, copyParameter(p))
	}

	result = append(result,
		parameter(domain.KeyPhaseStatus, phaseStatus),
		parameter(domain.KeyPhaseAction, phaseAction),
	)
	if withDisplay {
		result = append(result, parameter(domain.KeyDisplayPhase, displayPhase))
	}

	return result, nil
}

// Apply кодирует типизированное состояние процесса.
// display == nil — process.displayPhase не меняется.
func Apply(current []domain.ExtraParameter, state domain.ProcessState, display *Display) ([]domain.ExtraParameter, error) {
	action := state.PhaseAction()
	if display == nil {
		return ComputeTransition(current, state.PhaseStatus(), &action)
	}
	return ComputeTransitionWithDisplay(current, state.PhaseStatus(), &action, display.value)
}

// Display — необязательный аргумент для process.displayPhase.
// Отличает "не менять" (nil *Display) от "очистить" (ClearDisplay()).
type Display struct {
	value *string
}

// ShowDisplay задаёт подпись фазы.
func ShowDisplay(label string) *Display {
	return &Display{value: &label}
}

// ClearDisplay очищает подпись фазы.
func ClearDisplay() *Display {
	return &Display{}
}

// Equal сравнивает коллекции с учётом порядка ключей и значений.
// Используется, чтобы не отправлять patch без изменений.
func Equal(a, b []domain.ExtraParameter) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key != b[i].Key || len(a[i].Values) != len(b[i].Values) {
			return false
		}
		for j := range a[i].Values {
			if a[i].Values[j] != b[i].Values[j] {
				return false
			}
		}
	}
	return true
}

func parameter(key string, value *string) domain.ExtraParameter {
	values := []string{}
	if value != nil {
		values = []string{*value}
	}
	return domain.ExtraParameter{Key: key, Values: values}
}

func copyParameter(p domain.ExtraParameter) domain.ExtraParameter {
	values := make([]string, len(p.Values))
	copy(values, p.Values)
	p.Values = values
	return p
}
