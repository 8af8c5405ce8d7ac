// Package journal хранит уже выполненные побочные эффекты задач.
//
// Часть внешних систем (сообщения, support-management) не умеет отвечать
// конфликтом на повторный запрос. Для них воркер записывает
// (номер дела, задача, эффект) → ссылка на результат после успешного вызова
// и сверяется с журналом перед повтором.
//
// Реализации:
//   - MemoryStore   — для тестов и запуска без БД
//   - PostgresStore — pgxpool, таблица effect_journal
package journal
