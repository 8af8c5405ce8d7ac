package worker

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/permitflow/internal/client"
	"github.com/shaiso/permitflow/internal/domain"
	"github.com/shaiso/permitflow/internal/journal"
	"github.com/shaiso/permitflow/internal/mq"
	"github.com/shaiso/permitflow/internal/telemetry"
)

type failure struct {
	taskID  string
	message string
	details string
	retries int
}

type fakeEngine struct {
	mu          sync.Mutex
	queue       map[string][]*domain.Task
	fetchErr    error
	completeErr error
	failureErr  error
	completed   map[string]map[string]any
	failures    []failure
	fetches     int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		queue:     make(map[string][]*domain.Task),
		completed: make(map[string]map[string]any),
	}
}

func (e *fakeEngine) push(task *domain.Task) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue[task.TopicName] = append(e.queue[task.TopicName], task)
}

func (e *fakeEngine) FetchAndLock(_ context.Context, topics ...string) ([]*domain.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fetches++
	if e.fetchErr != nil {
		return nil, e.fetchErr
	}
	var out []*domain.Task
	for _, t := range topics {
		out = append(out, e.queue[t]...)
		delete(e.queue, t)
	}
	return out, nil
}

func (e *fakeEngine) Complete(_ context.Context, taskID string, vars map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.completeErr != nil {
		return e.completeErr
	}
	e.completed[taskID] = vars
	return nil
}

func (e *fakeEngine) HandleFailure(_ context.Context, taskID, message, details string, retries int, _ time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failureErr != nil {
		return e.failureErr
	}
	e.failures = append(e.failures, failure{taskID, message, details, retries})
	return nil
}

func (e *fakeEngine) completedVars(id string) (map[string]any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.completed[id]
	return v, ok
}

type fakePublisher struct {
	mu        sync.Mutex
	completed []mq.TaskOutcomePayload
	failed    []mq.TaskOutcomePayload
}

func (p *fakePublisher) PublishTaskCompleted(_ context.Context, payload mq.TaskOutcomePayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, payload)
	return nil
}

func (p *fakePublisher) PublishTaskFailed(_ context.Context, payload mq.TaskOutcomePayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, payload)
	return nil
}

func newTask(id, topic string) *domain.Task {
	return &domain.Task{
		ID:          id,
		TopicName:   topic,
		BusinessKey: "PRH-2024-000001",
		Variables:   map[string]any{domain.VarCaseNumber: int64(42)},
		Status:      domain.TaskStatusReceived,
		ReceivedAt:  time.Now(),
	}
}

func newTestWorker(t *testing.T, engine *fakeEngine, pub OutcomePublisher, handlers map[string]Handler) *Worker {
	t.Helper()
	reg := NewRegistry()
	for topic, h := range handlers {
		require.NoError(t, reg.Register(topic, h))
	}
	return New(Config{
		Engine:    engine,
		Registry:  reg,
		Publisher: pub,
		Backoff:   Backoff{Initial: 5 * time.Millisecond, Factor: 2, Max: 20 * time.Millisecond},
		Metrics:   telemetry.NewMetrics(prometheus.NewRegistry()),
	})
}

// --- Registry ---

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	noop := HandlerFunc(func(context.Context, *domain.Task) (*Result, error) { return nil, nil })

	require.NoError(t, reg.Register("b", noop))
	require.NoError(t, reg.Register("a", noop))
	assert.ErrorIs(t, reg.Register("a", noop), ErrDuplicateTopic)

	_, err := reg.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownTopic)

	assert.Equal(t, []string{"a", "b"}, reg.Topics())
	assert.Panics(t, func() { reg.MustRegister("a", noop) })
}

func TestNewResult(t *testing.T) {
	r := NewResult("finalDecision", true, "isApproved", false).Set("phaseAction", "UNKNOWN")
	assert.Equal(t, map[string]any{
		"finalDecision": true,
		"isApproved":    false,
		"phaseAction":   "UNKNOWN",
	}, r.Variables)
}

// --- execute ---

func TestExecute_Completes(t *testing.T) {
	engine := newFakeEngine()
	pub := &fakePublisher{}
	w := newTestWorker(t, engine, pub, map[string]Handler{
		"CheckCardExistsTask": HandlerFunc(func(context.Context, *domain.Task) (*Result, error) {
			return NewResult("cardExists", true), nil
		}),
	})

	task := newTask("t-1", "CheckCardExistsTask")
	outcome := w.execute(context.Background(), task)

	assert.Equal(t, telemetry.OutcomeCompleted, outcome)
	assert.Equal(t, domain.TaskStatusCompleted, task.Status)
	vars, ok := engine.completedVars("t-1")
	require.True(t, ok)
	assert.Equal(t, true, vars["cardExists"])
	assert.Empty(t, engine.failures)

	require.Len(t, pub.completed, 1)
	assert.Equal(t, "42", pub.completed[0].ErrandNumber)
	assert.Equal(t, "COMPLETED", pub.completed[0].Status)
}

func TestExecute_ProblemBecomesIncident(t *testing.T) {
	engine := newFakeEngine()
	pub := &fakePublisher{}
	w := newTestWorker(t, engine, pub, map[string]Handler{
		"OrderCardTask": HandlerFunc(func(context.Context, *domain.Task) (*Result, error) {
			return nil, domain.NewProblem(domain.KindUnsupportedCaseType, "caseType=%s", "ANYTHING")
		}),
	})

	task := newTask("t-2", "OrderCardTask")
	outcome := w.execute(context.Background(), task)

	assert.Equal(t, telemetry.OutcomeIncident, outcome)
	assert.Equal(t, domain.TaskStatusFailed, task.Status)
	require.Len(t, engine.failures, 1)
	f := engine.failures[0]
	assert.Equal(t, "t-2", f.taskID)
	assert.Equal(t, 0, f.retries)
	assert.Equal(t, "Unsupported case type", f.message)
	assert.Contains(t, f.details, "caseNumber: 42")
	assert.Contains(t, f.details, "businessKey: PRH-2024-000001")
	assert.Contains(t, f.details, "caseType=ANYTHING")

	_, completed := engine.completedVars("t-2")
	assert.False(t, completed)
	require.Len(t, pub.failed, 1)
}

func TestExecute_PanicBecomesIncident(t *testing.T) {
	engine := newFakeEngine()
	w := newTestWorker(t, engine, nil, map[string]Handler{
		"CleanUpNotesTask": HandlerFunc(func(context.Context, *domain.Task) (*Result, error) {
			panic("nil map")
		}),
	})

	outcome := w.execute(context.Background(), newTask("t-3", "CleanUpNotesTask"))

	assert.Equal(t, telemetry.OutcomeIncident, outcome)
	require.Len(t, engine.failures, 1)
	assert.Contains(t, engine.failures[0].message, "handler panicked")
	assert.Contains(t, engine.failures[0].message, "nil map")
}

func TestExecute_CompleteFailureBecomesIncident(t *testing.T) {
	engine := newFakeEngine()
	engine.completeErr = errors.New("engine down")
	w := newTestWorker(t, engine, nil, map[string]Handler{
		"X": HandlerFunc(func(context.Context, *domain.Task) (*Result, error) { return nil, nil }),
	})

	task := newTask("t-4", "X")
	outcome := w.execute(context.Background(), task)

	assert.Equal(t, telemetry.OutcomeIncident, outcome)
	assert.Equal(t, domain.TaskStatusFailed, task.Status)
	require.Len(t, engine.failures, 1)
	assert.Contains(t, engine.failures[0].message, "engine down")
}

func TestExecute_ReportFailureIsLost(t *testing.T) {
	engine := newFakeEngine()
	engine.failureErr = errors.New("engine down")
	w := newTestWorker(t, engine, nil, map[string]Handler{
		"X": HandlerFunc(func(context.Context, *domain.Task) (*Result, error) { return nil, errors.New("boom") }),
	})

	outcome := w.execute(context.Background(), newTask("t-5", "X"))
	assert.Equal(t, telemetry.OutcomeLost, outcome)
}

func TestExecute_UnknownTopic(t *testing.T) {
	engine := newFakeEngine()
	w := newTestWorker(t, engine, nil, nil)

	outcome := w.execute(context.Background(), newTask("t-6", "Nope"))
	assert.Equal(t, telemetry.OutcomeIncident, outcome)
	require.Len(t, engine.failures, 1)
	assert.Contains(t, engine.failures[0].message, "no handler registered")
}

func TestFailureHandler_TruncatesMessage(t *testing.T) {
	engine := newFakeEngine()
	f := NewFailureHandler(engine, nil)

	require.NoError(t, f.HandleException(context.Background(), newTask("t", "X"), strings.Repeat("x", 1000)))
	require.Len(t, engine.failures, 1)
	assert.Len(t, engine.failures[0].message, maxErrorMessage)
	assert.NotContains(t, engine.failures[0].details, "cause:")
}

// --- lifecycle ---

func TestWorker_StartRequiresTopics(t *testing.T) {
	w := newTestWorker(t, newFakeEngine(), nil, nil)
	assert.ErrorIs(t, w.Start(context.Background()), ErrNoTopics)
}

func TestWorker_PollsAndCompletes(t *testing.T) {
	engine := newFakeEngine()
	engine.push(newTask("t-1", "A"))
	engine.push(newTask("t-2", "B"))

	handler := HandlerFunc(func(_ context.Context, task *domain.Task) (*Result, error) {
		return NewResult("seen", task.ID), nil
	})
	w := newTestWorker(t, engine, nil, map[string]Handler{"A": handler, "B": handler})

	require.NoError(t, w.Start(context.Background()))
	assert.ErrorIs(t, w.Start(context.Background()), ErrAlreadyStarted)

	require.Eventually(t, func() bool {
		_, a := engine.completedVars("t-1")
		_, b := engine.completedVars("t-2")
		return a && b
	}, 2*time.Second, 5*time.Millisecond)

	// задача, пришедшая позже, подхватывается следующим опросом
	engine.push(newTask("t-3", "A"))
	assert.True(t, w.Wake("A"))
	assert.False(t, w.Wake("unknown"))
	require.Eventually(t, func() bool {
		_, ok := engine.completedVars("t-3")
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	w.Stop()

	status := w.Status()
	require.Len(t, status, 2)
	assert.Equal(t, "A", status[0].Topic)
	assert.Equal(t, int64(2), status[0].Completed)
	assert.False(t, status[0].LastPoll.IsZero())
}

func TestWorker_StopDrainsInFlightTask(t *testing.T) {
	engine := newFakeEngine()
	engine.push(newTask("t-1", "A"))

	started := make(chan struct{})
	release := make(chan struct{})
	var handlerErr error
	handler := HandlerFunc(func(ctx context.Context, task *domain.Task) (*Result, error) {
		close(started)
		<-release
		handlerErr = ctx.Err()
		return NewResult("done", true), nil
	})
	w := newTestWorker(t, engine, nil, map[string]Handler{"A": handler})

	require.NoError(t, w.Start(context.Background()))
	<-started

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned before the in-flight task finished")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
	assert.NoError(t, handlerErr)
	vars, ok := engine.completedVars("t-1")
	require.True(t, ok)
	assert.Equal(t, true, vars["done"])
}

func TestWorker_StopCancelsAfterDrainTimeout(t *testing.T) {
	engine := newFakeEngine()
	engine.push(newTask("t-1", "A"))

	started := make(chan struct{})
	var handlerErr error
	reg := NewRegistry()
	reg.MustRegister("A", HandlerFunc(func(ctx context.Context, task *domain.Task) (*Result, error) {
		close(started)
		<-ctx.Done()
		handlerErr = ctx.Err()
		return nil, ctx.Err()
	}))
	w := New(Config{
		Engine:       engine,
		Registry:     reg,
		DrainTimeout: 30 * time.Millisecond,
		Metrics:      telemetry.NewMetrics(prometheus.NewRegistry()),
	})

	require.NoError(t, w.Start(context.Background()))
	<-started

	begin := time.Now()
	w.Stop()
	assert.GreaterOrEqual(t, time.Since(begin), 30*time.Millisecond)
	assert.ErrorIs(t, handlerErr, context.Canceled)
}

func TestWorker_HandleTaskAvailable(t *testing.T) {
	w := newTestWorker(t, newFakeEngine(), nil, map[string]Handler{
		"A": HandlerFunc(func(context.Context, *domain.Task) (*Result, error) { return nil, nil }),
	})
	ctx := context.Background()

	msg := mq.NewMessage(mq.MessageTypeTaskAvailable, mq.TaskAvailablePayload{Topic: "other"})
	assert.NoError(t, w.handleTaskAvailable(ctx, msg))

	bad := mq.Message{Payload: []int{1}}
	assert.ErrorIs(t, w.handleTaskAvailable(ctx, &bad), mq.ErrReject)
}

func TestWorker_FetchErrorsBackOff(t *testing.T) {
	engine := newFakeEngine()
	engine.fetchErr = errors.New("connection refused")
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())

	reg := NewRegistry()
	reg.MustRegister("A", HandlerFunc(func(context.Context, *domain.Task) (*Result, error) { return nil, nil }))
	w := New(Config{
		Engine:   engine,
		Registry: reg,
		Backoff:  Backoff{Initial: 10 * time.Millisecond, Factor: 2, Max: 40 * time.Millisecond},
		Metrics:  metrics,
	})

	require.NoError(t, w.Start(context.Background()))
	time.Sleep(150 * time.Millisecond)
	w.Stop()

	engine.mu.Lock()
	fetches := engine.fetches
	engine.mu.Unlock()

	// без задержки было бы тысячи попыток
	assert.Less(t, fetches, 20)
	assert.Greater(t, fetches, 1)
	assert.Equal(t, 0.04, testutil.ToFloat64(metrics.FetchBackoff.WithLabelValues("A")))
}

// --- backoff ---

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{Initial: time.Second, Factor: 2, Max: 10 * time.Second}

	assert.Equal(t, time.Duration(0), b.Delay(0))
	assert.Equal(t, time.Second, b.Delay(1))
	assert.Equal(t, 2*time.Second, b.Delay(2))
	assert.Equal(t, 8*time.Second, b.Delay(4))
	assert.Equal(t, 10*time.Second, b.Delay(5))
	assert.Equal(t, 10*time.Second, b.Delay(500))
}

func TestBackoff_Defaults(t *testing.T) {
	var b Backoff
	assert.Equal(t, 500*time.Millisecond, b.Delay(1))
	assert.Equal(t, time.Second, b.Delay(2))
	assert.Equal(t, time.Minute, b.Delay(100))
}

// --- duplicate guard ---

func conflict(system string, problem client.Problem) error {
	return &client.Error{System: system, Method: http.MethodPost, Path: "/x", StatusCode: http.StatusConflict, Problem: problem}
}

func TestDuplicateGuard_Absorb(t *testing.T) {
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	g := NewDuplicateGuard(GuardConfig{Metrics: metrics})
	ctx := context.Background()

	assert.NoError(t, g.Absorb(ctx, conflict("rpa", client.Problem{ErrorCode: float64(1016)})))
	assert.NoError(t, g.Absorb(ctx, conflict("rpa", client.Problem{Code: "DuplicateItem"})))
	assert.NoError(t, g.Absorb(ctx, conflict("party-assets", client.Problem{Code: "ALREADY_EXISTS"})))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.DuplicatesAbsorbed.WithLabelValues("rpa")))

	unknown := conflict("rpa", client.Problem{Code: "Locked"})
	assert.Equal(t, unknown, g.Absorb(ctx, unknown))

	otherSystem := conflict("party-assets", client.Problem{ErrorCode: float64(1016)})
	assert.Equal(t, otherSystem, g.Absorb(ctx, otherSystem))

	serverErr := &client.Error{System: "rpa", StatusCode: http.StatusInternalServerError, Problem: client.Problem{Code: "Duplicate"}}
	assert.Equal(t, error(serverErr), g.Absorb(ctx, serverErr))

	assert.NoError(t, g.Absorb(ctx, nil))
}

func TestDuplicateGuard_Once(t *testing.T) {
	store := journal.NewMemoryStore()
	g := NewDuplicateGuard(GuardConfig{Journal: store})
	ctx := context.Background()
	key := journal.Key{ErrandNumber: "PRH-1", Task: "DecisionHandlingTask", Effect: "decision-message"}

	calls := 0
	send := func(context.Context) (string, error) {
		calls++
		return "m-1", nil
	}

	ref, err := g.Once(ctx, key, "messaging", send)
	require.NoError(t, err)
	assert.Equal(t, "m-1", ref)

	ref, err = g.Once(ctx, key, "messaging", send)
	require.NoError(t, err)
	assert.Equal(t, "m-1", ref)
	assert.Equal(t, 1, calls)
}

func TestDuplicateGuard_Recorded(t *testing.T) {
	g := NewDuplicateGuard(GuardConfig{})
	ctx := context.Background()
	key := journal.Key{ErrandNumber: "PRH-1", Task: "DecisionHandlingTask", Effect: "fallback-support-case"}

	_, ok, err := g.Recorded(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = g.Once(ctx, key, "support-management", func(context.Context) (string, error) { return "s-1", nil })
	require.NoError(t, err)

	ref, ok, err := g.Recorded(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "s-1", ref)
}

func TestExecute_CompletionCarriesCaseContext(t *testing.T) {
	engine := newFakeEngine()
	w := newTestWorker(t, engine, nil, map[string]Handler{
		"X": HandlerFunc(func(context.Context, *domain.Task) (*Result, error) {
			return NewResult("namespace", "OVERRIDE", "cardExists", false), nil
		}),
	})

	task := newTask("t-ctx", "X")
	task.Variables[domain.VarMunicipalityID] = "2281"
	task.Variables[domain.VarNamespace] = "SBK_PARKING_PERMIT"
	w.execute(context.Background(), task)

	vars, ok := engine.completedVars("t-ctx")
	require.True(t, ok)
	assert.Equal(t, int64(42), vars[domain.VarCaseNumber])
	assert.Equal(t, "2281", vars[domain.VarMunicipalityID])
	assert.Equal(t, "OVERRIDE", vars[domain.VarNamespace])
	assert.Equal(t, false, vars["cardExists"])
}
