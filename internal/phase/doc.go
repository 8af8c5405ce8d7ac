// Package phase кодирует состояние процесса в extraParameters дела.
//
// Backend хранит метаданные фазы не отдельными полями, а в общей
// коллекции key→values. Любой воркер, меняющий фазу, обязан удалить
// старые значения управляемых ключей и вставить новые, не трогая
// остальные ключи. ComputeTransition — единственное место, где это делается.
//
// Управляемые ключи:
//   - process.phaseStatus  — WAITING | CANCELED | пусто (в работе)
//   - process.phaseAction  — UNKNOWN | CANCEL | AUTOMATIC, всегда присутствует
//   - process.displayPhase — подпись фазы для UI (только если передана)
//
// Extras — типизированное чтение коллекции: бизнес-логика не разбирает
// сырые списки ключей.
package phase
