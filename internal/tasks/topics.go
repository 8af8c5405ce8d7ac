package tasks

// Имена задач (топики engine).
const (
	TopicUpdateErrandPhase   = "UpdateErrandPhaseTask"
	TopicUpdateErrandStatus  = "UpdateErrandStatusTask"
	TopicUpdatePhaseStatus   = "UpdatePhaseStatusTask"
	TopicVerifyAdministrator = "VerifyAdministratorStakeholderExists"
	TopicVerifyResident      = "VerifyResidentOfMunicipality"
	TopicCheckPhaseAction    = "CheckPhaseActionTask"
	TopicExecuteRules        = "ExecuteRulesTask"
	TopicConstructDecision   = "ConstructDecisionTask"
	TopicCheckDecision       = "CheckDecisionTask"
	TopicDecisionHandling    = "DecisionHandlingTask"
	TopicCheckCardExists     = "CheckCardExistsTask"
	TopicOrderCard           = "OrderCardTask"
	TopicCreateAsset         = "CreateAssetTask"
	TopicCleanUpNotes        = "CleanUpNotesTask"
)

// Входные переменные.
const (
	VarPhase             = "phase"
	VarDisplayPhase      = "displayPhase"
	VarStatusType        = "statusType"
	VarStatusDescription = "statusDescription"
	VarPhaseStatus       = "phaseStatus"
	VarRuleEngineResult  = "ruleEngineResponse"
)

// Выходные переменные.
const (
	OutAssignedToAdministrator = "assignedToAdministrator"
	OutNotResident             = "applicantNotResidentOfMunicipality"
	OutPhaseAction             = "phaseAction"
	OutIsCanceled              = "isCanceled"
	OutRuleEngineResponse      = "ruleEngineResponse"
	OutFinalDecision           = "finalDecision"
	OutIsApproved              = "isApproved"
	OutMessageID               = "messageId"
	OutCardExists              = "cardExists"
)

// DisplayCanceled — ключ подписи фазы для отозванного дела.
const DisplayCanceled = "Canceled"

// Эффекты в журнале.
const (
	effectDecisionMessage = "decision-message"
	effectFallbackCase    = "fallback-support-case"
	effectCardCase        = "card-support-case"
)
