// permitflow worker — обрабатывает задачи процесса парковочных разрешений.
//
// Worker:
//   - Опрашивает workflow engine по каждому топику (fetch-and-lock)
//   - Выполняет обработчик задачи и завершает её или создаёт инцидент
//   - Просыпается досрочно по task.available из RabbitMQ (если настроен)
//   - Хранит журнал эффектов в PostgreSQL (или в памяти без database.url)
//   - Чистит журнал по расписанию
//   - Отдаёт /healthz, /readyz, /metrics и ops API
//
// Воркеры масштабируются горизонтально: повторная доставка задачи
// безопасна благодаря идемпотентным обработчикам.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaiso/permitflow/internal/api"
	"github.com/shaiso/permitflow/internal/client"
	"github.com/shaiso/permitflow/internal/config"
	"github.com/shaiso/permitflow/internal/engine"
	"github.com/shaiso/permitflow/internal/journal"
	"github.com/shaiso/permitflow/internal/mq"
	"github.com/shaiso/permitflow/internal/scheduler"
	"github.com/shaiso/permitflow/internal/tasks"
	"github.com/shaiso/permitflow/internal/telemetry"
	"github.com/shaiso/permitflow/internal/texts"
	"github.com/shaiso/permitflow/internal/worker"
)

// Интервал проверки расписания чистки журнала.
const sweepCheckInterval = time.Minute

func main() {
	configPath := flag.String("config", "", "path to config file (default: $PERMITFLOW_CONFIG)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting permit-worker",
		"worker_id", cfg.Engine.WorkerID,
		"municipality_id", cfg.MunicipalityID,
		"namespace", cfg.Namespace,
	)

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	// Журнал эффектов
	store, closeStore, err := openJournal(ctx, cfg.Database.URL, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// RabbitMQ
	var (
		mqConn    *mq.Connection
		publisher *mq.Publisher
	)
	if cfg.RabbitMQ.URL != "" {
		mqConn, err = mq.NewConnection(cfg.RabbitMQ, logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
		} else {
			defer mqConn.Close()
			logger.Info("RabbitMQ connected")

			if err := mq.SetupTopology(ctx, mqConn); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			}
			publisher = mq.NewPublisher(mqConn, logger)
		}
	} else {
		logger.Info("RabbitMQ not configured, running in polling-only mode")
	}

	// Клиенты интеграций
	engineClient, err := engine.New(cfg.Engine.Config, logger)
	if err != nil {
		return fmt.Errorf("engine client: %w", err)
	}
	caseData := client.NewCaseData(cfg.Integrations.CaseData, logger)

	renderer, err := texts.New(cfg.Texts)
	if err != nil {
		return fmt.Errorf("texts: %w", err)
	}

	guard := worker.NewDuplicateGuard(worker.GuardConfig{
		Codes:   cfg.Duplicates,
		Journal: store,
		Metrics: metrics,
		Logger:  logger,
	})

	registry := worker.NewRegistry()
	if _, err := tasks.Register(registry, tasks.Deps{
		CaseData:         caseData,
		Citizens:         client.NewCitizenRegistry(cfg.Integrations.Citizen, logger),
		Rules:            client.NewRuleEngine(cfg.Integrations.BusinessRules, logger),
		Messaging:        client.NewMessaging(cfg.Integrations.Messaging, logger),
		Templating:       client.NewTemplating(cfg.Integrations.Templating, logger),
		Support:          client.NewSupport(cfg.Integrations.SupportManagement, logger),
		Assets:           client.NewAssets(cfg.Integrations.PartyAssets, logger),
		RPA:              client.NewRPA(cfg.Integrations.RPA, logger),
		Engine:           engineClient,
		Guard:            guard,
		Texts:            renderer,
		Queues:           cfg.RPA.Queues,
		MunicipalityID:   cfg.MunicipalityID,
		Namespace:        cfg.Namespace,
		SupportNamespace: cfg.SupportNamespace,
		LockExtension:    cfg.LockExtension,
		Logger:           logger,
	}); err != nil {
		return fmt.Errorf("register tasks: %w", err)
	}

	// Создаём worker
	wcfg := worker.Config{
		Engine:   engineClient,
		Registry: registry,
		Backoff:  cfg.Engine.Backoff,
		Metrics:  metrics,
		Logger:   logger,

		DrainTimeout: cfg.Engine.DrainTimeout,
	}
	if publisher != nil {
		wcfg.Publisher = publisher
		wcfg.Conn = mqConn
	}
	w := worker.New(wcfg)

	// Чистка журнала
	sweeper, err := scheduler.New(scheduler.Config{
		Journal:   store,
		Retention: cfg.Journal.Retention,
		Cron:      cfg.Journal.SweepCron,
		Metrics:   metrics,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("journal scheduler: %w", err)
	}

	// Запускаем worker. Сигнал не отменяет текущие задачи: их дожидается Stop.
	if err := w.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}

	go sweeper.Run(ctx, sweepCheckInterval)

	// HTTP: probes, metrics, ops API
	apiCfg := api.Config{
		Workers:        w,
		Journal:        store,
		Errands:        caseData,
		Gatherer:       prometheus.DefaultGatherer,
		MunicipalityID: cfg.MunicipalityID,
		Namespace:      cfg.Namespace,
		Logger:         logger,
	}
	if publisher != nil {
		apiCfg.Broker = mqConn
		apiCfg.Notifier = publisher
	}
	mux := http.NewServeMux()
	api.NewHandler(apiCfg).RegisterRoutes(mux)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	// Останавливаем worker до закрытия соединений с журналом и RabbitMQ
	w.Stop()
	logger.Info("permit-worker stopped")
	return nil
}

// openJournal выбирает хранилище журнала: PostgreSQL при заданном URL,
// иначе память процесса.
func openJournal(ctx context.Context, dsn string, logger *slog.Logger) (journal.Store, func(), error) {
	if dsn == "" {
		logger.Warn("database.url is empty, side-effect journal is kept in memory")
		return journal.NewMemoryStore(), func() {}, nil
	}

	pool, err := journal.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("database connected")

	store := journal.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate journal: %w", err)
	}
	return store, pool.Close, nil
}
