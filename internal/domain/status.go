package domain

// TaskStatus — статус обработки одного вызова task.
//
// Жизненный цикл (на вызов, не на дело):
//
//	RECEIVED → EXECUTING → COMPLETED
//	                     ↘ FAILED (engine может доставить task повторно)
type TaskStatus string

const (
	// TaskStatusReceived — task получен от engine.
	TaskStatusReceived TaskStatus = "RECEIVED"

	// TaskStatusExecuting — выполняется бизнес-логика.
	TaskStatusExecuting TaskStatus = "EXECUTING"

	// TaskStatusCompleted — engine получил complete с выходными переменными.
	TaskStatusCompleted TaskStatus = "COMPLETED"

	// TaskStatusFailed — ошибка передана в Failure Handler.
	TaskStatusFailed TaskStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление TaskStatus.
func (s TaskStatus) String() string {
	return string(s)
}
