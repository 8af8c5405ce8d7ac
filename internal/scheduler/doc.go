// Package scheduler периодически чистит журнал побочных эффектов.
//
// Записи журнала нужны, пока задача может прийти повторно. После
// retention они удаляются по cron-расписанию.
//
// Структура:
//   - scheduler.go — Scheduler (Tick, Sweep, Run)
//   - cron.go      — парсинг cron-выражений и вычисление следующего времени
//
// Использование:
//
//	sched, err := scheduler.New(scheduler.Config{
//	    Journal:   store,
//	    Retention: 30 * 24 * time.Hour,
//	    Cron:      "0 3 * * *",
//	    Metrics:   metrics,
//	    Logger:    logger,
//	})
//
//	go sched.Run(ctx, time.Minute)
//
// Purge идемпотентен, поэтому несколько воркеров могут чистить журнал
// одновременно без leader election.
package scheduler
