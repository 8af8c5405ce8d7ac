package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shaiso/permitflow/internal/domain"
)

// maxErrorMessage — engine хранит errorMessage в колонке ограниченной длины.
const maxErrorMessage = 666

// IncidentReporter — часть engine, нужная Failure Handler.
type IncidentReporter interface {
	HandleFailure(ctx context.Context, taskID, message, details string, retries int, retryTimeout time.Duration) error
}

// FailureHandler превращает ошибку обработчика в инцидент.
//
// Локальных повторов нет: retries = 0, дальше решает оператор в engine.
// Если engine недоступен, задача остаётся заблокированной до истечения lock
// и будет выдана снова.
type FailureHandler struct {
	engine IncidentReporter
	logger *slog.Logger
}

// NewFailureHandler создаёт FailureHandler.
func NewFailureHandler(engine IncidentReporter, logger *slog.Logger) *FailureHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FailureHandler{engine: engine, logger: logger}
}

// HandleException сообщает engine об инциденте по задаче.
func (f *FailureHandler) HandleException(ctx context.Context, task *domain.Task, message string) error {
	return f.report(ctx, task, message, "")
}

// HandleError — HandleException для error: Problem даёт постоянное сообщение,
// детали уходят в errorDetails.
func (f *FailureHandler) HandleError(ctx context.Context, task *domain.Task, err error) error {
	message := err.Error()
	var problem *domain.Problem
	if errors.As(err, &problem) {
		message = problem.Message()
	}
	return f.report(ctx, task, message, err.Error())
}

func (f *FailureHandler) report(ctx context.Context, task *domain.Task, message, cause string) error {
	if len(message) > maxErrorMessage {
		message = message[:maxErrorMessage]
	}
	details := FailureDetails(task, cause)

	if err := f.engine.HandleFailure(ctx, task.ID, message, details, 0, 0); err != nil {
		f.logger.Error("failed to report incident, task left to lock timeout",
			"task_id", task.ID,
			"topic", task.TopicName,
			"message", message,
			"error", err,
		)
		return fmt.Errorf("report incident: %w", err)
	}

	f.logger.Warn("incident reported",
		"task_id", task.ID,
		"topic", task.TopicName,
		"business_key", task.BusinessKey,
		"message", message,
	)
	return nil
}

// FailureDetails собирает errorDetails для инцидента.
func FailureDetails(task *domain.Task, cause string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "taskId: %s\n", task.ID)
	fmt.Fprintf(&b, "topic: %s\n", task.TopicName)
	if task.BusinessKey != "" {
		fmt.Fprintf(&b, "businessKey: %s\n", task.BusinessKey)
	}
	if task.ProcessInstanceID != "" {
		fmt.Fprintf(&b, "processInstanceId: %s\n", task.ProcessInstanceID)
	}
	if n, ok := task.StringVariable(domain.VarCaseNumber); ok {
		fmt.Fprintf(&b, "caseNumber: %s\n", n)
	}
	if cause != "" {
		fmt.Fprintf(&b, "cause: %s\n", cause)
	}
	return b.String()
}
