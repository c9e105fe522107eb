package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"liquidator/internal/api"
	"liquidator/internal/chain"
	"liquidator/internal/config"
	"liquidator/internal/engine"
	"liquidator/internal/repository"
	"liquidator/internal/service"
	"liquidator/internal/websocket"
	"liquidator/pkg/utils"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	logger, err := utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database",
			zap.String("dsn", cfg.Database.DSNWithoutPassword()),
			zap.Error(err),
		)
	}
	defer db.Close()
	logger.Info("connected to database", zap.String("dsn", cfg.Database.DSNWithoutPassword()))

	// Репозиторий журнала событий
	eventRepo := repository.NewEventRepository(db)

	// WebSocket hub
	hub := websocket.NewHub(logger)
	go hub.Run()
	defer hub.Stop()

	// Каналы доставки уведомлений
	sinks := []service.Sink{
		service.NewLogSink(logger),
		service.NewJournalSink(eventRepo),
		service.NewHubSink(hub),
	}
	if cfg.Notifications.TelegramToken != "" {
		telegram, err := service.NewTelegramSink(cfg.Notifications.TelegramToken, cfg.Notifications.TelegramChatID)
		if err != nil {
			logger.Fatal("failed to init telegram sink", zap.Error(err))
		}
		sinks = append(sinks, telegram)
		logger.Info("telegram notifications enabled", zap.Int64("chat_id", cfg.Notifications.TelegramChatID))
	}
	notifier := service.NewNotificationService(logger, sinks...)

	// Подключение к цепочке
	reader, err := chain.NewReader(cfg.Chain.Driver, cfg.Chain.Endpoint)
	if err != nil {
		logger.Fatal("failed to init chain reader", zap.Error(err))
	}
	executor, err := chain.NewExecutor(cfg.Chain.Driver, cfg.Chain.Endpoint)
	if err != nil {
		logger.Fatal("failed to init chain executor", zap.Error(err))
	}

	// Стартовая проверка: кошелёк должен читаться до запуска движка
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if _, err := reader.FetchWallet(startupCtx); err != nil {
		startupCancel()
		logger.Fatal("startup wallet fetch failed", zap.Error(err))
	}
	startupCancel()

	// Выбор стратегий: dry-run подменяет боевые варианты на Null
	var liquidator engine.AccountLiquidator
	var balancer engine.WalletBalancer
	if cfg.Engine.DryRun {
		liquidator = engine.NewNullAccountLiquidator(logger)
		balancer = engine.NewNullWalletBalancer(logger)
		logger.Warn("dry-run mode: liquidations and rebalances are simulated")
	} else {
		liquidator = engine.NewLiveAccountLiquidator(executor, logger)
		if len(cfg.Engine.Targets) > 0 {
			balancer = engine.NewLiveWalletBalancer(
				executor,
				notifier,
				cfg.Engine.Targets,
				cfg.Engine.ActionThreshold,
				cfg.Engine.AdjustmentFactor,
				logger,
			)
		} else {
			// Без настроенных целей балансировать нечего
			balancer = engine.NewNullWalletBalancer(logger)
		}
	}

	// Процессор ликвидаций
	processor := engine.NewProcessor(
		engine.ProcessorConfig{
			RipeThreshold:          cfg.Engine.RipeThreshold,
			WorthwhileThreshold:    cfg.Engine.WorthwhileThreshold,
			MaxConsecutiveFailures: cfg.Engine.MaxConsecutiveFailures,
			StaleAccountsAfter:     cfg.Engine.StaleAccountsAfter,
			StalePricesAfter:       cfg.Engine.StalePricesAfter,
		},
		liquidator,
		balancer,
		reader,
		notifier,
		logger,
	)

	// Супервизор подписок на фиды
	supervisor := engine.NewSupervisor(
		engine.SupervisorConfig{
			AccountInterval:     cfg.Engine.AccountRefreshInterval,
			PriceInterval:       cfg.Engine.PriceRefreshInterval,
			RetryPauses:         cfg.Engine.RetryPauses,
			HealthCheckInterval: cfg.Engine.HealthCheckInterval,
		},
		reader,
		processor,
		logger,
	)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()
	go supervisor.Run(rootCtx)

	// Периодическая сводка для WebSocket клиентов и автоочистка журнала
	go statusBroadcastLoop(rootCtx, hub, processor)
	if cfg.Engine.EventRetention > 0 {
		go journalCleanupLoop(rootCtx, eventRepo, cfg.Engine.EventRetention, logger)
	}

	// HTTP сервер
	router := api.SetupRoutes(&api.Dependencies{
		Status:       processor,
		Events:       eventRepo,
		Hub:          hub,
		Logger:       logger,
		APITokenHash: cfg.Security.APITokenHash,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server",
			zap.String("addr", server.Addr),
			zap.Bool("https", cfg.Server.UseHTTPS),
			zap.Bool("dry_run", cfg.Engine.DryRun),
		)
		if cfg.Server.UseHTTPS {
			if err := server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile); err != nil && err != http.ErrServerClosed {
				logger.Fatal("server failed", zap.Error(err))
			}
		} else {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("server failed", zap.Error(err))
			}
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	// Гасим подписки и ждём незавершённые диспатчи и доставки
	rootCancel()
	processor.Wait()
	notifier.Flush()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

// statusBroadcastLoop периодически рассылает сводку процессора WebSocket клиентам
func statusBroadcastLoop(ctx context.Context, hub *websocket.Hub, processor *engine.Processor) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if hub.ClientCount() > 0 {
				hub.BroadcastStatus(processor.Status())
			}
		}
	}
}

// journalCleanupLoop подрезает журнал событий до настроенного размера
func journalCleanupLoop(ctx context.Context, repo *repository.EventRepository, keep int, logger *zap.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := repo.KeepRecent(keep)
			if err != nil {
				logger.Warn("event journal cleanup failed", zap.Error(err))
				continue
			}
			if deleted > 0 {
				logger.Info("event journal trimmed", zap.Int64("deleted", deleted))
			}
		}
	}
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
