// Package worker выполняет external tasks workflow engine.
//
// # Обзор
//
// Worker держит по одной горутине опроса на каждое зарегистрированное имя
// задачи (топик). Горутина делает fetch-and-lock, для каждой полученной
// задачи вызывает общий скелет execute и сообщает итог engine.
//
//	reg := worker.NewRegistry()
//	tasks.Register(reg, deps)
//
//	w := worker.New(worker.Config{
//	    Engine:   engineClient,
//	    Registry: reg,
//	    Conn:     mqConn,    // опционально: wakeup по task.available
//	    Backoff:  cfg.Engine.Backoff,
//	    Logger:   logger,
//	})
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// # Обработка задачи
//
//  1. RECEIVED — задача получена из fetch-and-lock
//  2. EXECUTING — вызов Handler.Handle, паника перехватывается
//  3. COMPLETED — complete с выходными переменными
//  4. FAILED — ошибка (включая ошибку complete) уходит в FailureHandler,
//     который создаёт инцидент (retries = 0)
//
// Повторов внутри процесса нет. Повторная доставка — дело engine: после
// истечения lock или после ручного снятия инцидента.
//
// # Backoff
//
// Пустой или неудачный fetch увеличивает задержку до следующего опроса:
// initial * factor^(n-1), не больше max. Сообщение task.available из
// RabbitMQ сбрасывает задержку и будит опрос немедленно.
//
// # Дубликаты
//
// DuplicateGuard поглощает конфликт 409 с известным кодом дубликата
// и ведёт журнал эффектов для систем без такого кода.
package worker
