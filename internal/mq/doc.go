// Package mq — RabbitMQ-инфраструктура воркера.
//
// Структура:
//   - connection.go — соединение с reconnect и graceful shutdown
//   - topology.go   — exchanges, queues, bindings, DLQ
//   - publisher.go  — публикация событий
//   - consumer.go   — потребление с ack/nack
//
// Типы сообщений:
//   - task.available — в engine появились задачи по топику (будит poll loop)
//   - task.completed — задача завершена воркером
//   - task.failed    — по задаче создан инцидент
//
// Очередь не является источником истины: корректность держится на
// fetch-and-lock в engine, сообщения только ускоряют реакцию.
package mq
