package domain

// Типы дел.
const (
	CaseTypeParkingPermit        = "PARKING_PERMIT"
	CaseTypeParkingPermitRenewal = "PARKING_PERMIT_RENEWAL"
	CaseTypeLostParkingPermit    = "LOST_PARKING_PERMIT"
)

// Роли участников.
const (
	RoleApplicant     = "APPLICANT"
	RoleAdministrator = "ADMINISTRATOR"
)

// Фазы дела.
const (
	PhaseActualization = "Actualization"
	PhaseInvestigation = "Investigation"
	PhaseDecision      = "Decision"
	PhaseHandling      = "Handling"
	PhaseExecution     = "Execution"
	PhaseFollowUp      = "Follow up"
	PhaseCanceled      = "Canceled"
)

// Типы статусов дела.
const (
	StatusCaseReceived       = "CASE_RECEIVED"
	StatusUnderReview        = "UNDER_REVIEW"
	StatusUnderInvestigation = "UNDER_INVESTIGATION"
	StatusCaseDecided        = "CASE_DECIDED"
	StatusDecisionExecuted   = "DECISION_EXECUTED"
	StatusCardOrdered        = "CARD_ORDERED"
	StatusCaseClosed         = "CASE_CLOSED"
)

// Типы заметок.
const (
	NoteTypeInternal = "INTERNAL"
	NoteTypePublic   = "PUBLIC"
)

// Ключи extraParameters.
const (
	KeyPhaseStatus  = "process.phaseStatus"
	KeyPhaseAction  = "process.phaseAction"
	KeyDisplayPhase = "process.displayPhase"

	KeyPermitNumber      = "artefact.permit.number"
	KeyPermitStatus      = "artefact.permit.status"
	KeyPermitExpiration  = "application.renewal.expirationDate"
	KeyApplicantCapacity = "application.applicant.capacity"
	KeyApplicationReason = "application.reason"
	KeyPoliceReport      = "artefact.lost.permit.policeReportNumber"
)

// Значения process.phaseStatus.
const (
	PhaseStatusWaiting  = "WAITING"
	PhaseStatusCanceled = "CANCELED"
)

// Значения process.phaseAction.
const (
	PhaseActionUnknown   = "UNKNOWN"
	PhaseActionCancel    = "CANCEL"
	PhaseActionAutomatic = "AUTOMATIC"
)

// DecisionType — тип решения.
type DecisionType string

const (
	DecisionTypeRecommended DecisionType = "RECOMMENDED"
	DecisionTypeFinal       DecisionType = "FINAL"
)

// DecisionOutcome — исход решения.
type DecisionOutcome string

const (
	DecisionOutcomeApproval  DecisionOutcome = "APPROVAL"
	DecisionOutcomeRejection DecisionOutcome = "REJECTION"
)

// Значения результата rule engine.
const (
	RuleValuePass          = "PASS"
	RuleValueFail          = "FAIL"
	RuleValueNotApplicable = "NOT_APPLICABLE"
)

// RuleResult — сводный результат rule engine. Не сохраняется.
type RuleResult struct {
	Value   string        `json:"value"`
	Details []*RuleDetail `json:"details,omitempty"`
}

// RuleDetail — текстовый фрагмент пояснения к результату правила.
type RuleDetail struct {
	Rule        string `json:"rule,omitempty"`
	Description string `json:"description"`
}
