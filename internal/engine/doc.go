// Package engine — клиент REST API workflow engine (external tasks).
//
// Включает:
//   - client.go    — fetch-and-lock, complete, failure, extend lock, variables
//   - variables.go — кодирование типизированных переменных процесса
//
// Engine сам по себе внешний: здесь только транспорт и преобразование
// external task в domain.Task.
package engine
