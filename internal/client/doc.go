// Package client содержит узкие HTTP-клиенты внешних систем.
//
// Все клиенты построены на REST: таймауты соединения и чтения задаются
// на интеграцию, исходящие запросы ограничиваются rate limiter'ом.
// Ответы со статусом >= 400 возвращаются как *Error с разобранным
// problem-телом, чтобы вызывающий код мог отличить конфликт-дубликат
// от прочих ошибок.
//
// Клиенты:
//   - CaseData   — дела, решения, статусы, заметки, вложения (case-management backend)
//   - Citizen    — реестр граждан (адреса)
//   - Rules      — rule engine
//   - Messaging  — цифровая почта и веб-сообщения
//   - Templating — рендеринг PDF решения
//   - Support    — support-management (ручные письма, заказ карт)
//   - Assets     — реестр активов (парковочное разрешение как актив)
//   - RPA        — очередь RPA-роботов
//
// Клиенты не содержат бизнес-логики.
package client
