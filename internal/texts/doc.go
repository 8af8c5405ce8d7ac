// Package texts — тексты, которые воркер отправляет людям.
//
// Шаблоны сообщений о решении, заголовки support-дел и подписи фаз
// задаются в конфигурации и рендерятся через text/template.
// Шаблоны разбираются один раз в New, ошибки в них видны при старте.
package texts
