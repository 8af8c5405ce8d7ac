package worker

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/shaiso/permitflow/internal/domain"
	"github.com/shaiso/permitflow/internal/mq"
	"github.com/shaiso/permitflow/internal/telemetry"
)

// execute — общий скелет обработки задачи:
// RECEIVED → EXECUTING → COMPLETED | FAILED.
//
// Возвращает исход для метрик: completed, incident или lost (инцидент
// не удалось зарегистрировать, задача вернётся после истечения lock).
func (w *Worker) execute(ctx context.Context, task *domain.Task) string {
	logger := telemetry.WithTask(w.logger, task)
	ctx = telemetry.WithLogger(ctx, logger)

	task.MarkExecuting()
	logger.Info("task started")

	result, err := w.invoke(ctx, task)
	if err == nil {
		vars := completionVariables(task, result)
		// ошибка complete — тоже инцидент: иначе engine выдаст задачу снова
		if err = w.engine.Complete(ctx, task.ID, vars); err != nil {
			err = fmt.Errorf("complete: %w", err)
		} else {
			task.MarkCompleted(vars)
		}
	}

	outcome := telemetry.OutcomeCompleted
	if err != nil {
		task.MarkFailed(err.Error())
		logger.Error("task failed", "error", err)

		outcome = telemetry.OutcomeIncident
		if reportErr := w.failures.HandleError(ctx, task, err); reportErr != nil {
			outcome = telemetry.OutcomeLost
		}
	} else {
		logger.Info("task completed", "duration", task.Duration(), "outputs", len(task.Outputs))
	}

	w.metrics.ObserveTask(task.TopicName, outcome, task.Duration())
	w.publishOutcome(ctx, task)
	return outcome
}

// contextVariables возвращаются в engine при complete вместе с выходом обработчика.
var contextVariables = []string{domain.VarCaseNumber, domain.VarMunicipalityID, domain.VarNamespace}

// completionVariables объединяет выход обработчика с контекстом дела.
// Значения обработчика имеют приоритет.
func completionVariables(task *domain.Task, result *Result) map[string]any {
	vars := make(map[string]any, len(contextVariables))
	for _, name := range contextVariables {
		if v, ok := task.Variable(name); ok {
			vars[name] = v
		}
	}
	if result != nil {
		for k, v := range result.Variables {
			vars[k] = v
		}
	}
	return vars
}

// invoke вызывает обработчик, превращая панику в ошибку.
func (w *Worker) invoke(ctx context.Context, task *domain.Task) (result *Result, err error) {
	handler, err := w.registry.Get(task.TopicName)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			telemetry.FromContext(ctx).Error("handler panic", "panic", r, "stack", string(debug.Stack()))
			result, err = nil, fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()

	return handler.Handle(ctx, task)
}

// publishOutcome публикует итог в RabbitMQ. Ошибки публикации не влияют
// на задачу: engine уже знает итог.
func (w *Worker) publishOutcome(ctx context.Context, task *domain.Task) {
	if w.publisher == nil {
		return
	}

	payload := mq.TaskOutcomePayload{
		TaskID:            task.ID,
		Topic:             task.TopicName,
		BusinessKey:       task.BusinessKey,
		ProcessInstanceID: task.ProcessInstanceID,
		Status:            string(task.Status),
		Outputs:           task.Outputs,
		Error:             task.Error,
		DurationMs:        task.Duration().Milliseconds(),
	}
	if n, ok := task.StringVariable(domain.VarCaseNumber); ok {
		payload.ErrandNumber = n
	}

	var err error
	if task.Status == domain.TaskStatusCompleted {
		err = w.publisher.PublishTaskCompleted(ctx, payload)
	} else {
		err = w.publisher.PublishTaskFailed(ctx, payload)
	}
	if err != nil {
		telemetry.FromContext(ctx).Warn("failed to publish task outcome", "error", err)
	}
}
