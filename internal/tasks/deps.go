package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/shaiso/permitflow/internal/client"
	"github.com/shaiso/permitflow/internal/domain"
	"github.com/shaiso/permitflow/internal/texts"
	"github.com/shaiso/permitflow/internal/worker"
)

// CaseData — доступ к делу в case-management backend.
type CaseData interface {
	GetErrand(ctx context.Context, ref client.ErrandRef) (*domain.Errand, error)
	PatchErrand(ctx context.Context, ref client.ErrandRef, patch domain.ErrandPatch) error
	AddDecision(ctx context.Context, ref client.ErrandRef, decision domain.Decision) error
	AddStatus(ctx context.Context, ref client.ErrandRef, status domain.Status) error
	ListNotes(ctx context.Context, ref client.ErrandRef, noteType string) ([]domain.Note, error)
	DeleteNote(ctx context.Context, ref client.ErrandRef, noteID int64) error
	ListAttachments(ctx context.Context, ref client.ErrandRef) ([]domain.Attachment, error)
}

// Citizens — реестр граждан.
type Citizens interface {
	GetCitizen(ctx context.Context, municipalityID, personID string) (*client.Citizen, error)
}

// Rules — rule engine.
type Rules interface {
	Evaluate(ctx context.Context, municipalityID string, req client.RuleRequest) (*client.RuleResponse, error)
}

// Messaging — отправка сообщений гражданину.
type Messaging interface {
	SendDigitalMail(ctx context.Context, municipalityID string, req client.MessageRequest) (string, error)
	SendWebMessage(ctx context.Context, municipalityID string, req client.MessageRequest) (string, error)
}

// Templating — рендеринг PDF.
type Templating interface {
	RenderPDF(ctx context.Context, municipalityID string, req client.RenderRequest) (string, error)
}

// Support — support-management.
type Support interface {
	CreateErrand(ctx context.Context, municipalityID, namespace string, errand client.SupportErrand) (string, error)
}

// Assets — реестр активов.
type Assets interface {
	CreateAsset(ctx context.Context, municipalityID string, asset client.Asset) error
}

// RPA — очередь роботов.
type RPA interface {
	AddQueueItem(ctx context.Context, item client.QueueItem) error
}

// LockExtender продлевает блокировку задачи в engine.
type LockExtender interface {
	ExtendLock(ctx context.Context, taskID string, duration time.Duration) error
}

// Deps — зависимости обработчиков.
type Deps struct {
	CaseData   CaseData
	Citizens   Citizens
	Rules      Rules
	Messaging  Messaging
	Templating Templating
	Support    Support
	Assets     Assets
	RPA        RPA
	Engine     LockExtender

	Guard *worker.DuplicateGuard
	Texts *texts.Renderer

	// Queues — имена очередей RPA по типу дела.
	Queues map[string][]string

	// MunicipalityID и Namespace — значения, если их нет в переменных задачи.
	MunicipalityID string
	Namespace      string

	// SupportNamespace — namespace support-management для служебных дел.
	SupportNamespace string

	// LockExtension — на сколько продлевать lock перед долгими задачами.
	LockExtension time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// DefaultQueues — очереди RPA по умолчанию.
func DefaultQueues() map[string][]string {
	return map[string][]string{
		domain.CaseTypeParkingPermit:        {"NyttKortNyAnsokan"},
		domain.CaseTypeParkingPermitRenewal: {"NyttKortFornyelse"},
		domain.CaseTypeLostParkingPermit:    {"NyttKortBorttappat", "SparraKort"},
	}
}

// ErrMissingDependency — в Deps нет клиента, нужного обработчику.
var ErrMissingDependency = errors.New("tasks: missing dependency")

// Handlers — обработчики с общими зависимостями.
type Handlers struct {
	deps Deps
}

// New проверяет зависимости и заполняет значения по умолчанию.
func New(deps Deps) (*Handlers, error) {
	if deps.CaseData == nil {
		return nil, errors.Join(ErrMissingDependency, errors.New("case data client"))
	}
	if deps.Texts == nil {
		r, err := texts.New(texts.Config{})
		if err != nil {
			return nil, err
		}
		deps.Texts = r
	}
	if deps.Guard == nil {
		deps.Guard = worker.NewDuplicateGuard(worker.GuardConfig{Logger: deps.Logger})
	}
	if deps.Queues == nil {
		deps.Queues = DefaultQueues()
	}
	if deps.SupportNamespace == "" {
		deps.SupportNamespace = "CONTACTCENTER"
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Handlers{deps: deps}, nil
}

// Register создаёт обработчики и регистрирует все топики в reg.
func Register(reg *worker.Registry, deps Deps) (*Handlers, error) {
	h, err := New(deps)
	if err != nil {
		return nil, err
	}

	for topic, fn := range h.table() {
		if err := reg.Register(topic, fn); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Topics возвращает все поддерживаемые имена задач по алфавиту.
func Topics() []string {
	h := &Handlers{}
	topics := make([]string, 0, 16)
	for topic := range h.table() {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

func (h *Handlers) table() map[string]worker.HandlerFunc {
	return map[string]worker.HandlerFunc{
		TopicUpdateErrandPhase:   h.UpdateErrandPhase,
		TopicUpdateErrandStatus:  h.UpdateErrandStatus,
		TopicUpdatePhaseStatus:   h.UpdatePhaseStatus,
		TopicVerifyAdministrator: h.VerifyAdministrator,
		TopicVerifyResident:      h.VerifyResident,
		TopicCheckPhaseAction:    h.CheckPhaseAction,
		TopicExecuteRules:        h.ExecuteRules,
		TopicConstructDecision:   h.ConstructDecision,
		TopicCheckDecision:       h.CheckDecision,
		TopicDecisionHandling:    h.DecisionHandling,
		TopicCheckCardExists:     h.CheckCardExists,
		TopicOrderCard:           h.OrderCard,
		TopicCreateAsset:         h.CreateAsset,
		TopicCleanUpNotes:        h.CleanUpNotes,
	}
}
