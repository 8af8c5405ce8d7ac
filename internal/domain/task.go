package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Имена стандартных переменных процесса.
const (
	VarCaseNumber     = "caseNumber"
	VarMunicipalityID = "municipalityId"
	VarNamespace      = "namespace"
)

// Task — единица работы, выданная workflow engine воркеру.
//
// Один и тот же логический task может прийти повторно (at-least-once):
// после истечения блокировки или после явной ошибки.
type Task struct {
	// ID — идентификатор external task в engine.
	ID string `json:"id"`

	// TopicName — имя задачи, по которому выбирается обработчик.
	TopicName string `json:"topic_name"`

	// BusinessKey — бизнес-ключ процесса (обычно номер дела).
	BusinessKey string `json:"business_key,omitempty"`

	// ProcessInstanceID — экземпляр процесса в engine.
	ProcessInstanceID string `json:"process_instance_id,omitempty"`

	// WorkerID — кто заблокировал task.
	WorkerID string `json:"worker_id,omitempty"`

	// Retries — оставшиеся попытки по мнению engine (nil — не задано).
	Retries *int `json:"retries,omitempty"`

	// LockExpiration — время истечения блокировки.
	LockExpiration *time.Time `json:"lock_expiration,omitempty"`

	// Variables — входные переменные процесса.
	Variables map[string]any `json:"variables,omitempty"`

	// Status — статус обработки в этом процессе.
	Status TaskStatus `json:"status"`

	// Outputs — выходные переменные после COMPLETED.
	Outputs map[string]any `json:"outputs,omitempty"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — сообщение об ошибке при FAILED.
	Error string `json:"error,omitempty"`

	// ReceivedAt — время получения от engine.
	ReceivedAt time.Time `json:"received_at"`
}

// Duration возвращает продолжительность выполнения.
func (t *Task) Duration() time.Duration {
	if t.StartedAt == nil || t.FinishedAt == nil {
		return 0
	}
	return t.FinishedAt.Sub(*t.StartedAt)
}

// IsFinished возвращает true, если task завершён.
func (t *Task) IsFinished() bool {
	return t.Status.IsTerminal()
}

// MarkExecuting переводит task в статус EXECUTING.
func (t *Task) MarkExecuting() {
	now := time.Now()
	t.Status = TaskStatusExecuting
	t.StartedAt = &now
}

// MarkCompleted переводит task в статус COMPLETED с выходными переменными.
func (t *Task) MarkCompleted(outputs map[string]any) {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.FinishedAt = &now
	t.Outputs = outputs
}

// MarkFailed переводит task в статус FAILED с ошибкой.
func (t *Task) MarkFailed(err string) {
	now := time.Now()
	t.Status = TaskStatusFailed
	t.FinishedAt = &now
	t.Error = err
}

// Variable возвращает переменную по имени.
func (t *Task) Variable(name string) (any, bool) {
	v, ok := t.Variables[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// StringVariable возвращает строковую переменную. Числа приводятся к строке.
func (t *Task) StringVariable(name string) (string, bool) {
	v, ok := t.Variable(name)
	if !ok {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case int:
		return strconv.Itoa(val), true
	default:
		return fmt.Sprint(val), true
	}
}

// ErrandID возвращает идентификатор дела из переменной caseNumber.
func (t *Task) ErrandID() (int64, error) {
	raw, ok := t.StringVariable(VarCaseNumber)
	if !ok || raw == "" {
		return 0, NewProblem(KindMissingVariable, "%s", VarCaseNumber)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, NewProblem(KindInvalidVariable, "%s=%q", VarCaseNumber, raw)
	}
	return id, nil
}

// DecodeVariable декодирует переменную (JSON, map или строку JSON) в T.
func DecodeVariable[T any](t *Task, name string) (T, error) {
	var result T

	v, ok := t.Variable(name)
	if !ok {
		return result, NewProblem(KindMissingVariable, "%s", name)
	}

	var raw []byte
	switch val := v.(type) {
	case json.RawMessage:
		raw = val
	case string:
		raw = []byte(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return result, NewProblem(KindInvalidVariable, "%s: %v", name, err)
		}
		raw = b
	}

	if err := json.Unmarshal(raw, &result); err != nil {
		return result, NewProblem(KindInvalidVariable, "%s: %v", name, err)
	}
	return result, nil
}
