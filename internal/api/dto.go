package api

import (
	"time"

	"github.com/shaiso/permitflow/internal/domain"
	"github.com/shaiso/permitflow/internal/journal"
	"github.com/shaiso/permitflow/internal/phase"
	"github.com/shaiso/permitflow/internal/worker"
)

// Health DTOs

// HealthResponse — результат проверки готовности.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Worker DTOs

// TopicResponse — состояние опроса одного топика.
type TopicResponse struct {
	Topic     string     `json:"topic"`
	Completed int64      `json:"completed"`
	Incidents int64      `json:"incidents"`
	Lost      int64      `json:"lost"`
	LastPoll  *time.Time `json:"last_poll,omitempty"`
}

// TopicFromWorker конвертирует worker.TopicStatus в TopicResponse.
func TopicFromWorker(s worker.TopicStatus) TopicResponse {
	resp := TopicResponse{
		Topic:     s.Topic,
		Completed: s.Completed,
		Incidents: s.Incidents,
		Lost:      s.Lost,
	}
	if !s.LastPoll.IsZero() {
		t := s.LastPoll
		resp.LastPoll = &t
	}
	return resp
}

// WakeResponse — результат пробуждения топика.
type WakeResponse struct {
	Topic     string `json:"topic"`
	Woken     bool   `json:"woken"`
	Published bool   `json:"published"`
}

// Journal DTOs

// JournalEntryResponse — запись журнала эффектов.
type JournalEntryResponse struct {
	ErrandNumber string    `json:"errand_number"`
	Task         string    `json:"task"`
	Effect       string    `json:"effect"`
	Reference    string    `json:"reference,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// JournalEntryFromDomain конвертирует journal.Entry в JournalEntryResponse.
func JournalEntryFromDomain(e journal.Entry) JournalEntryResponse {
	return JournalEntryResponse{
		ErrandNumber: e.ErrandNumber,
		Task:         e.Task,
		Effect:       e.Effect,
		Reference:    e.Reference,
		CreatedAt:    e.CreatedAt,
	}
}

// PurgeResponse — результат чистки журнала.
type PurgeResponse struct {
	Before time.Time `json:"before"`
	Purged int64     `json:"purged"`
}

// Errand DTOs

// ErrandStateResponse — состояние процесса по делу.
type ErrandStateResponse struct {
	ID            int64      `json:"id"`
	ErrandNumber  string     `json:"errand_number"`
	CaseType      string     `json:"case_type"`
	Phase         string     `json:"phase"`
	PhaseStatus   string     `json:"phase_status,omitempty"`
	PhaseAction   string     `json:"phase_action"`
	DisplayPhase  string     `json:"display_phase,omitempty"`
	State         string     `json:"state"`
	FinalDecision string     `json:"final_decision,omitempty"`
	LatestStatus  string     `json:"latest_status,omitempty"`
	PermitNumber  string     `json:"permit_number,omitempty"`
	Administrator bool       `json:"administrator_assigned"`
	Updated       *time.Time `json:"updated,omitempty"`
}

// ErrandStateFromDomain конвертирует domain.Errand в ErrandStateResponse.
func ErrandStateFromDomain(e *domain.Errand) ErrandStateResponse {
	extras := phase.Read(e.ExtraParameters)
	resp := ErrandStateResponse{
		ID:            e.ID,
		ErrandNumber:  e.ErrandNumber,
		CaseType:      e.CaseType,
		Phase:         e.Phase,
		PhaseAction:   extras.Action(),
		State:         extras.State().String(),
		Administrator: e.StakeholderWithRole(domain.RoleAdministrator) != nil,
		Updated:       e.Updated,
	}
	if extras.PhaseStatus != nil {
		resp.PhaseStatus = *extras.PhaseStatus
	}
	if extras.DisplayPhase != nil {
		resp.DisplayPhase = *extras.DisplayPhase
	}
	if extras.PermitNumber != nil {
		resp.PermitNumber = *extras.PermitNumber
	}
	if d := e.FinalDecision(); d != nil {
		resp.FinalDecision = string(d.DecisionOutcome)
	}
	if s := e.LatestStatus(); s != nil {
		resp.LatestStatus = s.StatusType
	}
	return resp
}
