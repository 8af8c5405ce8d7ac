// Package cli реализует инструмент командной строки permitflow.
//
// # Обзор
//
// CLI — утилита оператора. Часть команд работает через ops API воркера
// по HTTP, часть выполняется локально над чистыми пакетами phase и
// decision и не требует запущенного воркера.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для ops API. Инкапсулирует HTTP-запросы, парсинг ответов
// (DataResponse, ListResponse, ErrorResponse) и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8082")
//	topics, err := client.ListTopics()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (go-pretty) — по умолчанию
//   - JSON (json.Encoder с отступами) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: permit-cli topics --json | jq .
//
// ## Commands
//
// Через API:
//   - errand show ID
//   - topics [--local], topics wake TOPIC
//   - journal list ERRAND_NUMBER, journal purge
//   - ready
//
// Локально:
//   - transition FILE — предпросмотр перехода фазы над extraParameters
//   - decision preview FILE — решение по ответу rule engine
//   - config show — итоговая конфигурация без секретов
//
// Каждая группа создаётся через фабричную функцию (NewErrandCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
