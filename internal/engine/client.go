package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/shaiso/permitflow/internal/client"
	"github.com/shaiso/permitflow/internal/domain"
)

// Config — настройки подключения к engine.
type Config struct {
	client.Config `mapstructure:",squash" yaml:",inline"`

	// WorkerID — идентификатор воркера, под которым блокируются задачи.
	WorkerID string `mapstructure:"workerId" yaml:"workerId"`

	// LockDuration — длительность блокировки при fetch-and-lock.
	LockDuration time.Duration `mapstructure:"lockDuration" yaml:"lockDuration"`

	// MaxTasks — максимум задач за один fetch.
	MaxTasks int `mapstructure:"maxTasks" yaml:"maxTasks"`

	// AsyncResponseTimeout — long polling на стороне engine (0 — без него).
	AsyncResponseTimeout time.Duration `mapstructure:"asyncResponseTimeout" yaml:"asyncResponseTimeout"`
}

// Client — клиент external-task API.
type Client struct {
	rest *client.REST
	cfg  Config
}

// New создаёт клиент engine.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.WorkerID == "" {
		return nil, ErrNoWorkerID
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = time.Minute
	}
	if cfg.MaxTasks <= 0 {
		cfg.MaxTasks = 1
	}
	// long polling не должен упираться в таймаут ответа
	if cfg.AsyncResponseTimeout > 0 && cfg.ReadTimeout <= cfg.AsyncResponseTimeout {
		cfg.ReadTimeout = cfg.AsyncResponseTimeout + 10*time.Second
	}
	return &Client{rest: client.NewREST("engine", cfg.Config, logger), cfg: cfg}, nil
}

// WorkerID возвращает идентификатор воркера.
func (c *Client) WorkerID() string { return c.cfg.WorkerID }

type fetchTopic struct {
	TopicName    string `json:"topicName"`
	LockDuration int64  `json:"lockDuration"`
}

type fetchRequest struct {
	WorkerID             string       `json:"workerId"`
	MaxTasks             int          `json:"maxTasks"`
	UsePriority          bool         `json:"usePriority"`
	AsyncResponseTimeout int64        `json:"asyncResponseTimeout,omitempty"`
	Topics               []fetchTopic `json:"topics"`
}

// lockedTask — external task в ответе fetch-and-lock.
type lockedTask struct {
	ID                 string              `json:"id"`
	TopicName          string              `json:"topicName"`
	WorkerID           string              `json:"workerId"`
	BusinessKey        string              `json:"businessKey"`
	ProcessInstanceID  string              `json:"processInstanceId"`
	Retries            *int                `json:"retries"`
	LockExpirationTime string              `json:"lockExpirationTime"`
	Variables          map[string]Variable `json:"variables"`
}

// engine отдаёт время без двоеточия в смещении: 2024-01-02T10:00:00.000+0100
var lockTimeLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	time.RFC3339Nano,
}

func (t lockedTask) toDomain(now time.Time) *domain.Task {
	task := &domain.Task{
		ID:                t.ID,
		TopicName:         t.TopicName,
		BusinessKey:       t.BusinessKey,
		ProcessInstanceID: t.ProcessInstanceID,
		WorkerID:          t.WorkerID,
		Retries:           t.Retries,
		Variables:         DecodeVariables(t.Variables),
		Status:            domain.TaskStatusReceived,
		ReceivedAt:        now,
	}
	for _, layout := range lockTimeLayouts {
		if ts, err := time.Parse(layout, t.LockExpirationTime); err == nil {
			task.LockExpiration = &ts
			break
		}
	}
	return task
}

// FetchAndLock получает и блокирует задачи по указанным топикам.
func (c *Client) FetchAndLock(ctx context.Context, topics ...string) ([]*domain.Task, error) {
	if len(topics) == 0 {
		return nil, ErrNoTopics
	}
	req := fetchRequest{
		WorkerID:             c.cfg.WorkerID,
		MaxTasks:             c.cfg.MaxTasks,
		UsePriority:          true,
		AsyncResponseTimeout: c.cfg.AsyncResponseTimeout.Milliseconds(),
	}
	for _, topic := range topics {
		req.Topics = append(req.Topics, fetchTopic{
			TopicName:    topic,
			LockDuration: c.cfg.LockDuration.Milliseconds(),
		})
	}

	var locked []lockedTask
	if err := c.rest.Post(ctx, "/external-task/fetchAndLock", req, &locked); err != nil {
		return nil, fmt.Errorf("fetch and lock: %w", err)
	}

	now := time.Now().UTC()
	tasks := make([]*domain.Task, 0, len(locked))
	for _, t := range locked {
		tasks = append(tasks, t.toDomain(now))
	}
	return tasks, nil
}

type completeRequest struct {
	WorkerID  string              `json:"workerId"`
	Variables map[string]Variable `json:"variables,omitempty"`
}

// Complete завершает задачу с выходными переменными.
func (c *Client) Complete(ctx context.Context, taskID string, variables map[string]any) error {
	encoded, err := EncodeVariables(variables)
	if err != nil {
		return err
	}
	req := completeRequest{WorkerID: c.cfg.WorkerID, Variables: encoded}
	if err := c.rest.Post(ctx, taskPath(taskID, "complete"), req, nil); err != nil {
		return fmt.Errorf("complete task %s: %w", taskID, err)
	}
	return nil
}

type failureRequest struct {
	WorkerID     string `json:"workerId"`
	ErrorMessage string `json:"errorMessage"`
	ErrorDetails string `json:"errorDetails,omitempty"`
	Retries      int    `json:"retries"`
	RetryTimeout int64  `json:"retryTimeout"`
}

// HandleFailure сообщает об ошибке. retries = 0 создаёт инцидент.
func (c *Client) HandleFailure(ctx context.Context, taskID, message, details string, retries int, retryTimeout time.Duration) error {
	req := failureRequest{
		WorkerID:     c.cfg.WorkerID,
		ErrorMessage: message,
		ErrorDetails: details,
		Retries:      retries,
		RetryTimeout: retryTimeout.Milliseconds(),
	}
	if err := c.rest.Post(ctx, taskPath(taskID, "failure"), req, nil); err != nil {
		return fmt.Errorf("report failure for task %s: %w", taskID, err)
	}
	return nil
}

type extendLockRequest struct {
	WorkerID    string `json:"workerId"`
	NewDuration int64  `json:"newDuration"`
}

// ExtendLock продлевает блокировку задачи.
func (c *Client) ExtendLock(ctx context.Context, taskID string, duration time.Duration) error {
	req := extendLockRequest{WorkerID: c.cfg.WorkerID, NewDuration: duration.Milliseconds()}
	if err := c.rest.Post(ctx, taskPath(taskID, "extendLock"), req, nil); err != nil {
		return fmt.Errorf("extend lock for task %s: %w", taskID, err)
	}
	return nil
}

// SetVariable устанавливает переменную экземпляра процесса.
func (c *Client) SetVariable(ctx context.Context, processInstanceID, name string, value any) error {
	v, err := EncodeVariable(value)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/process-instance/%s/variables/%s", url.PathEscape(processInstanceID), url.PathEscape(name))
	if err := c.rest.Put(ctx, path, v, nil); err != nil {
		return fmt.Errorf("set variable %s: %w", name, err)
	}
	return nil
}

func taskPath(taskID, action string) string {
	return fmt.Sprintf("/external-task/%s/%s", url.PathEscape(taskID), action)
}
