// Package tasks содержит обработчики задач процесса парковочного разрешения.
//
// Каждый обработчик — тонкая реализация worker.Handler: читает дело,
// применяет переход фазы (phase) или синтез решения (decision), выполняет
// побочные эффекты через узкие клиенты и возвращает выходные переменные.
//
// Все обработчики идемпотентны при повторной доставке:
//   - patch extraParameters не отправляется, если коллекция не меняется;
//   - решение и статус не добавляются повторно;
//   - RPA и party-assets отвечают 409 на дубликат, его поглощает DuplicateGuard;
//   - сообщения и support-дела записываются в журнал эффектов.
package tasks
