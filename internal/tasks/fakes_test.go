package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shaiso/permitflow/internal/client"
	"github.com/shaiso/permitflow/internal/domain"
	"github.com/shaiso/permitflow/internal/journal"
	"github.com/shaiso/permitflow/internal/worker"
)

var testNow = time.Date(2024, 5, 14, 10, 30, 0, 0, time.UTC)

// fakeCaseData хранит одно дело и применяет к нему изменения.
type fakeCaseData struct {
	mu          sync.Mutex
	errand      *domain.Errand
	patches     []domain.ErrandPatch
	notes       []domain.Note
	deleted     []int64
	attachments []domain.Attachment
	getErr      error
}

func (f *fakeCaseData) GetErrand(_ context.Context, ref client.ErrandRef) (*domain.Errand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.errand == nil || f.errand.ID != ref.ID {
		return nil, &client.Error{System: "case-data", StatusCode: http.StatusNotFound}
	}
	return clone(f.errand), nil
}

func (f *fakeCaseData) PatchErrand(_ context.Context, _ client.ErrandRef, patch domain.ErrandPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	if patch.Phase != nil {
		f.errand.Phase = *patch.Phase
	}
	if patch.ExtraParameters != nil {
		f.errand.ExtraParameters = patch.ExtraParameters
	}
	return nil
}

func (f *fakeCaseData) AddDecision(_ context.Context, _ client.ErrandRef, d domain.Decision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errand.Decisions = append(f.errand.Decisions, d)
	return nil
}

func (f *fakeCaseData) AddStatus(_ context.Context, _ client.ErrandRef, s domain.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errand.Statuses = append(f.errand.Statuses, s)
	return nil
}

func (f *fakeCaseData) ListNotes(_ context.Context, _ client.ErrandRef, noteType string) ([]domain.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Note
	for _, n := range f.notes {
		if noteType == "" || n.NoteType == noteType {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeCaseData) DeleteNote(_ context.Context, _ client.ErrandRef, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, n := range f.notes {
		if n.ID == id {
			f.notes = append(f.notes[:i], f.notes[i+1:]...)
			f.deleted = append(f.deleted, id)
			return nil
		}
	}
	return &client.Error{System: "case-data", Method: http.MethodDelete, StatusCode: http.StatusNotFound}
}

func (f *fakeCaseData) ListAttachments(context.Context, client.ErrandRef) ([]domain.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attachments, nil
}

func (f *fakeCaseData) current() *domain.Errand {
	f.mu.Lock()
	defer f.mu.Unlock()
	return clone(f.errand)
}

func clone(e *domain.Errand) *domain.Errand {
	b, err := json.Marshal(e)
	if err != nil {
		panic(err)
	}
	var out domain.Errand
	if err := json.Unmarshal(b, &out); err != nil {
		panic(err)
	}
	return &out
}

type fakeCitizens struct {
	citizens map[string]*client.Citizen
}

func (f *fakeCitizens) GetCitizen(_ context.Context, _, personID string) (*client.Citizen, error) {
	c, ok := f.citizens[personID]
	if !ok {
		return nil, &client.Error{System: "citizen", StatusCode: http.StatusNotFound}
	}
	return c, nil
}

type fakeRules struct {
	requests []client.RuleRequest
	response client.RuleResponse
}

func (f *fakeRules) Evaluate(_ context.Context, _ string, req client.RuleRequest) (*client.RuleResponse, error) {
	f.requests = append(f.requests, req)
	resp := f.response
	return &resp, nil
}

type fakeMessaging struct {
	mailErr, webErr error
	mails, webs     []client.MessageRequest
}

func (f *fakeMessaging) SendDigitalMail(_ context.Context, _ string, req client.MessageRequest) (string, error) {
	f.mails = append(f.mails, req)
	if f.mailErr != nil {
		return "", f.mailErr
	}
	return "mail-1", nil
}

func (f *fakeMessaging) SendWebMessage(_ context.Context, _ string, req client.MessageRequest) (string, error) {
	f.webs = append(f.webs, req)
	if f.webErr != nil {
		return "", f.webErr
	}
	return "web-1", nil
}

type fakeTemplating struct {
	requests []client.RenderRequest
}

func (f *fakeTemplating) RenderPDF(_ context.Context, _ string, req client.RenderRequest) (string, error) {
	f.requests = append(f.requests, req)
	return "JVBERi0xLjQ=", nil
}

// fakeSupport отвечает ошибкой из errs по типу дела; после ответа ошибка снимается.
type fakeSupport struct {
	errands []client.SupportErrand
	errs    map[string]error
}

func (f *fakeSupport) CreateErrand(_ context.Context, _, _ string, errand client.SupportErrand) (string, error) {
	if err := f.errs[errand.Classification.Type]; err != nil {
		delete(f.errs, errand.Classification.Type)
		return "", err
	}
	f.errands = append(f.errands, errand)
	return fmt.Sprintf("support-%d", len(f.errands)), nil
}

// fakeRPA отвечает 409 DuplicateItem на повторный Reference.
type fakeRPA struct {
	items []client.QueueItem
	seen  map[string]bool
}

func (f *fakeRPA) AddQueueItem(_ context.Context, item client.QueueItem) error {
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	key := item.Name + "/" + item.Reference
	if f.seen[key] {
		return &client.Error{System: "rpa", Method: http.MethodPost, StatusCode: http.StatusConflict,
			Problem: client.Problem{Code: "DuplicateItem"}}
	}
	f.seen[key] = true
	f.items = append(f.items, item)
	return nil
}

// fakeAssets отвечает 409 ALREADY_EXISTS на повторный assetId.
type fakeAssets struct {
	assets []client.Asset
	err    error
}

func (f *fakeAssets) CreateAsset(_ context.Context, _ string, asset client.Asset) error {
	if f.err != nil {
		return f.err
	}
	for _, a := range f.assets {
		if a.AssetID == asset.AssetID {
			return &client.Error{System: "party-assets", Method: http.MethodPost, StatusCode: http.StatusConflict,
				Problem: client.Problem{Code: "ALREADY_EXISTS"}}
		}
	}
	f.assets = append(f.assets, asset)
	return nil
}

type fakeLock struct {
	extended []time.Duration
}

func (f *fakeLock) ExtendLock(_ context.Context, _ string, d time.Duration) error {
	f.extended = append(f.extended, d)
	return nil
}

type harness struct {
	h         *Handlers
	caseData  *fakeCaseData
	citizens  *fakeCitizens
	rules     *fakeRules
	messaging *fakeMessaging
	templates *fakeTemplating
	support   *fakeSupport
	rpa       *fakeRPA
	assets    *fakeAssets
	lock      *fakeLock
	journal   *journal.MemoryStore
}

func newHarness(t *testing.T, errand *domain.Errand) *harness {
	t.Helper()
	hs := &harness{
		caseData:  &fakeCaseData{errand: errand},
		citizens:  &fakeCitizens{citizens: map[string]*client.Citizen{}},
		rules:     &fakeRules{},
		messaging: &fakeMessaging{},
		templates: &fakeTemplating{},
		support:   &fakeSupport{},
		rpa:       &fakeRPA{},
		assets:    &fakeAssets{},
		lock:      &fakeLock{},
		journal:   journal.NewMemoryStore(),
	}
	h, err := New(Deps{
		CaseData:       hs.caseData,
		Citizens:       hs.citizens,
		Rules:          hs.rules,
		Messaging:      hs.messaging,
		Templating:     hs.templates,
		Support:        hs.support,
		Assets:         hs.assets,
		RPA:            hs.rpa,
		Engine:         hs.lock,
		Guard:          worker.NewDuplicateGuard(worker.GuardConfig{Journal: hs.journal}),
		MunicipalityID: "2281",
		Namespace:      "SBK_PARKING_PERMIT",
		LockExtension:  2 * time.Minute,
		Now:            func() time.Time { return testNow },
	})
	require.NoError(t, err)
	hs.h = h
	return hs
}

func (hs *harness) run(t *testing.T, topic string, vars map[string]any) (*worker.Result, error) {
	t.Helper()
	fn, ok := hs.h.table()[topic]
	require.True(t, ok, topic)
	return fn(context.Background(), newTask(topic, vars))
}

func newTask(topic string, vars map[string]any) *domain.Task {
	variables := map[string]any{domain.VarCaseNumber: "101"}
	for k, v := range vars {
		variables[k] = v
	}
	return &domain.Task{
		ID:          "task-" + topic,
		TopicName:   topic,
		BusinessKey: "PRH-2024-000101",
		Variables:   variables,
		Status:      domain.TaskStatusReceived,
		ReceivedAt:  testNow,
	}
}

func extra(key string, values ...string) domain.ExtraParameter {
	return domain.ExtraParameter{Key: key, Values: values}
}

func sampleErrand(extras ...domain.ExtraParameter) *domain.Errand {
	return &domain.Errand{
		ID:             101,
		ErrandNumber:   "PRH-2024-000101",
		MunicipalityID: "2281",
		Namespace:      "SBK_PARKING_PERMIT",
		CaseType:       domain.CaseTypeParkingPermit,
		Phase:          domain.PhaseActualization,
		ExtraParameters: append([]domain.ExtraParameter{
			extra(domain.KeyApplicantCapacity, "DRIVER"),
		}, extras...),
		Stakeholders: []domain.Stakeholder{
			{ID: 1, Type: "PERSON", Roles: []string{domain.RoleApplicant}, PersonID: "p-1", FirstName: "Anna", LastName: "Svensson"},
		},
	}
}

func withAdministrator(e *domain.Errand) *domain.Errand {
	e.Stakeholders = append(e.Stakeholders, domain.Stakeholder{ID: 2, Roles: []string{domain.RoleAdministrator}, FirstName: "Admin"})
	return e
}

func finalDecision(outcome domain.DecisionOutcome) domain.Decision {
	created := testNow.Add(-time.Hour)
	return domain.Decision{DecisionType: domain.DecisionTypeFinal, DecisionOutcome: outcome, Description: "Decision.", Created: &created}
}

func isProblem(err error, kind domain.ProblemKind) bool {
	return errors.Is(err, &domain.Problem{Kind: kind})
}
