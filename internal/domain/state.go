package domain

// Progress — ход обработки внутри фазы.
type Progress int

const (
	// ProgressActive — фаза выполняется (process.phaseStatus отсутствует).
	ProgressActive Progress = iota
	// ProgressWaiting — фаза ждёт внешнего события (WAITING).
	ProgressWaiting
	// ProgressCanceled — дело отозвано (CANCELED).
	ProgressCanceled
)

// Mode — ручная или автоматическая обработка.
type Mode int

const (
	ModeManual Mode = iota
	ModeAutomatic
)

// ProcessState — состояние процесса, закодированное в extraParameters.
//
// Комбинации:
//
//	Active/Waiting × Manual    → phaseAction UNKNOWN
//	Active/Waiting × Automatic → phaseAction AUTOMATIC
//	Canceled                   → phaseAction CANCEL (режим не важен)
//
// Значения создаются только через Active, Waiting и Canceled,
// поэтому phaseAction никогда не бывает пустым.
type ProcessState struct {
	progress Progress
	mode     Mode
}

// Active возвращает состояние "в работе".
func Active(mode Mode) ProcessState {
	return ProcessState{progress: ProgressActive, mode: mode}
}

// Waiting возвращает состояние ожидания.
func Waiting(mode Mode) ProcessState {
	return ProcessState{progress: ProgressWaiting, mode: mode}
}

// Canceled возвращает состояние отзыва дела.
func Canceled() ProcessState {
	return ProcessState{progress: ProgressCanceled}
}

// ParseProcessState восстанавливает состояние из сырых значений phaseStatus и phaseAction.
// CANCEL в любом из полей означает отзыв.
func ParseProcessState(phaseStatus, phaseAction string) ProcessState {
	if phaseAction == PhaseActionCancel || phaseStatus == PhaseStatusCanceled {
		return Canceled()
	}
	mode := ModeManual
	if phaseAction == PhaseActionAutomatic {
		mode = ModeAutomatic
	}
	if phaseStatus == PhaseStatusWaiting {
		return Waiting(mode)
	}
	return Active(mode)
}

// Progress возвращает ход обработки.
func (s ProcessState) Progress() Progress { return s.progress }

// Mode возвращает режим обработки.
func (s ProcessState) Mode() Mode { return s.mode }

// IsCanceled возвращает true для отозванного дела.
func (s ProcessState) IsCanceled() bool { return s.progress == ProgressCanceled }

// IsAutomatic возвращает true для автоматической обработки.
func (s ProcessState) IsAutomatic() bool {
	return s.progress != ProgressCanceled && s.mode == ModeAutomatic
}

// PhaseStatus возвращает значение process.phaseStatus; nil — "в работе".
func (s ProcessState) PhaseStatus() *string {
	var v string
	switch s.progress {
	case ProgressWaiting:
		v = PhaseStatusWaiting
	case ProgressCanceled:
		v = PhaseStatusCanceled
	default:
		return nil
	}
	return &v
}

// PhaseAction возвращает значение process.phaseAction.
func (s ProcessState) PhaseAction() string {
	switch {
	case s.progress == ProgressCanceled:
		return PhaseActionCancel
	case s.mode == ModeAutomatic:
		return PhaseActionAutomatic
	default:
		return PhaseActionUnknown
	}
}

// String — для логов.
func (s ProcessState) String() string {
	status := "ACTIVE"
	if p := s.PhaseStatus(); p != nil {
		status = *p
	}
	return status + "/" + s.PhaseAction()
}
