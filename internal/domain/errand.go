package domain

import (
	"strings"
	"time"
)

// Errand — дело (ärende) о парковочном разрешении в case-management backend.
//
// Errand создаётся внешней системой приёма заявлений. Воркеры читают его
// целиком и изменяют только частичными patch-запросами. Удаление дел
// в этой системе не выполняется.
type Errand struct {
	// ID — числовой идентификатор дела в backend.
	ID int64 `json:"id,omitempty"`

	// ErrandNumber — человекочитаемый номер дела (например, "PRH-2024-000123").
	ErrandNumber string `json:"errandNumber,omitempty"`

	// Namespace и MunicipalityID задают контекст дела в backend.
	Namespace      string `json:"namespace,omitempty"`
	MunicipalityID string `json:"municipalityId,omitempty"`

	// CaseType — тип дела: новое разрешение, продление, утерянное разрешение.
	CaseType string `json:"caseType,omitempty"`

	// Phase — текущая фаза обработки.
	Phase string `json:"phase,omitempty"`

	// ExtraParameters — упорядоченная коллекция key→values.
	// Ключи уникальны. Здесь же хранятся process.phaseStatus,
	// process.phaseAction и process.displayPhase.
	ExtraParameters []ExtraParameter `json:"extraParameters,omitempty"`

	Stakeholders   []Stakeholder   `json:"stakeholders,omitempty"`
	Decisions      []Decision      `json:"decisions,omitempty"`
	Statuses       []Status        `json:"statuses,omitempty"`
	RelatedErrands []RelatedErrand `json:"relatesTo,omitempty"`

	Created *time.Time `json:"created,omitempty"`
	Updated *time.Time `json:"updated,omitempty"`
}

// ExtraParameter — элемент коллекции extraParameters.
type ExtraParameter struct {
	Key         string   `json:"key"`
	DisplayName string   `json:"displayName,omitempty"`
	Values      []string `json:"values"`
}

// Stakeholder — участник дела.
type Stakeholder struct {
	ID           int64     `json:"id,omitempty"`
	Type         string    `json:"type,omitempty"`
	Roles        []string  `json:"roles,omitempty"`
	PersonID     string    `json:"personId,omitempty"`
	FirstName    string    `json:"firstName,omitempty"`
	LastName     string    `json:"lastName,omitempty"`
	Organization string    `json:"organizationName,omitempty"`
	ContactInfo  []Contact `json:"contactInformation,omitempty"`
	Addresses    []Address `json:"addresses,omitempty"`
}

// Contact — контактные данные участника.
type Contact struct {
	ContactType string `json:"contactType,omitempty"`
	Value       string `json:"value,omitempty"`
}

// Address — адрес участника.
type Address struct {
	AddressCategory string `json:"addressCategory,omitempty"`
	Street          string `json:"street,omitempty"`
	PostalCode      string `json:"postalCode,omitempty"`
	City            string `json:"city,omitempty"`
	CareOf          string `json:"careOf,omitempty"`
}

// Decision — решение по делу. Решения только добавляются, не изменяются.
type Decision struct {
	ID              int64           `json:"id,omitempty"`
	DecisionType    DecisionType    `json:"decisionType"`
	DecisionOutcome DecisionOutcome `json:"decisionOutcome"`
	Description     string          `json:"description,omitempty"`
	Created         *time.Time      `json:"created,omitempty"`
	DecidedAt       *time.Time      `json:"decidedAt,omitempty"`
}

// Status — запись в истории статусов дела.
type Status struct {
	StatusType  string     `json:"statusType"`
	Description string     `json:"description,omitempty"`
	Created     *time.Time `json:"created,omitempty"`
}

// Note — заметка к делу.
type Note struct {
	ID       int64  `json:"id,omitempty"`
	NoteType string `json:"noteType,omitempty"`
	Title    string `json:"title,omitempty"`
	Text     string `json:"text,omitempty"`
}

// Attachment — вложение дела (метаданные, без содержимого).
type Attachment struct {
	ID       int64  `json:"id,omitempty"`
	Category string `json:"category,omitempty"`
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// RelatedErrand — связь с другим делом (например, обжалование).
type RelatedErrand struct {
	ErrandID     int64  `json:"errandId,omitempty"`
	ErrandNumber string `json:"errandNumber,omitempty"`
	Relation     string `json:"relationType,omitempty"`
}

// ErrandPatch — частичное обновление дела. nil-поля не отправляются.
type ErrandPatch struct {
	Phase           *string          `json:"phase,omitempty"`
	ExtraParameters []ExtraParameter `json:"extraParameters,omitempty"`
}

// HasRole проверяет, есть ли у участника роль (без учёта регистра).
func (s *Stakeholder) HasRole(role string) bool {
	for _, r := range s.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// FullName возвращает имя участника для писем.
func (s *Stakeholder) FullName() string {
	if s.Organization != "" {
		return s.Organization
	}
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// StakeholderWithRole возвращает первого участника с указанной ролью или nil.
func (e *Errand) StakeholderWithRole(role string) *Stakeholder {
	for i := range e.Stakeholders {
		if e.Stakeholders[i].HasRole(role) {
			return &e.Stakeholders[i]
		}
	}
	return nil
}

// Applicant возвращает заявителя или nil.
func (e *Errand) Applicant() *Stakeholder {
	return e.StakeholderWithRole(RoleApplicant)
}

// ExtraParameter возвращает значения по ключу.
func (e *Errand) ExtraParameter(key string) ([]string, bool) {
	for _, p := range e.ExtraParameters {
		if p.Key == key {
			return p.Values, true
		}
	}
	return nil, false
}

// ExtraValue возвращает первое значение по ключу или "".
func (e *Errand) ExtraValue(key string) string {
	values, ok := e.ExtraParameter(key)
	if !ok || len(values) == 0 {
		return ""
	}
	return values[0]
}

// FinalDecision возвращает самое позднее решение типа FINAL или nil.
func (e *Errand) FinalDecision() *Decision {
	var latest *Decision
	for i := range e.Decisions {
		d := &e.Decisions[i]
		if d.DecisionType != DecisionTypeFinal {
			continue
		}
		if latest == nil || createdAfter(d, latest) {
			latest = d
		}
	}
	return latest
}

// IsDecided возвращает true, если есть хотя бы одно FINAL решение.
func (e *Errand) IsDecided() bool {
	return e.FinalDecision() != nil
}

// LatestDecision возвращает самое позднее решение любого типа или nil.
func (e *Errand) LatestDecision() *Decision {
	var latest *Decision
	for i := range e.Decisions {
		d := &e.Decisions[i]
		if latest == nil || createdAfter(d, latest) {
			latest = d
		}
	}
	return latest
}

// HasStatus проверяет, встречается ли в истории хотя бы один из статусов.
func (e *Errand) HasStatus(types ...string) bool {
	for _, s := range e.Statuses {
		for _, t := range types {
			if s.StatusType == t {
				return true
			}
		}
	}
	return false
}

// LatestStatus возвращает последний статус (по Created, иначе по порядку) или nil.
func (e *Errand) LatestStatus() *Status {
	var latest *Status
	for i := range e.Statuses {
		s := &e.Statuses[i]
		if latest == nil || latest.Created == nil || (s.Created != nil && !s.Created.Before(*latest.Created)) {
			latest = s
		}
	}
	return latest
}

// createdAfter сравнивает решения по Created. Решения без даты
// считаются более ранними; при равенстве побеждает позднее в списке.
func createdAfter(a, b *Decision) bool {
	switch {
	case a.Created == nil:
		return b.Created == nil
	case b.Created == nil:
		return true
	default:
		return !a.Created.Before(*b.Created)
	}
}
