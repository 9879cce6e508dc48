package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/notification-engine/internal/api/http"
	"github.com/spec-kit/notification-engine/internal/api/http/handlers"
	"github.com/spec-kit/notification-engine/internal/auth"
	"github.com/spec-kit/notification-engine/internal/channel"
	"github.com/spec-kit/notification-engine/internal/config"
	"github.com/spec-kit/notification-engine/internal/domain"
	"github.com/spec-kit/notification-engine/internal/engine"
	"github.com/spec-kit/notification-engine/internal/events"
	"github.com/spec-kit/notification-engine/internal/observability"
	"github.com/spec-kit/notification-engine/internal/persistence"
	"github.com/spec-kit/notification-engine/internal/repository"
	"github.com/spec-kit/notification-engine/internal/service"
	"github.com/spec-kit/notification-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ruleRepo := repository.NewRuleRepository(pool)
	logRepo := repository.NewNotificationLogRepository(pool)
	slaConfigRepo := repository.NewSlaConfigRepository(pool)
	violationRepo := repository.NewSlaViolationRepository(pool)
	escalationRepo := repository.NewEscalationRepository(pool)
	alertRepo := repository.NewAlertRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)
	ticketDir := repository.NewTicketDirectory(pool)
	userDir := repository.NewUserDirectory(pool)

	metrics := observability.NewMetrics()

	channels := channel.NewRegistry(
		channel.NewEmailDispatcher(cfg.Channels.EmailSMTPHost, cfg.Channels.EmailSMTPPort, cfg.Channels.EmailFrom, cfg.Channels.EmailSMTPUser, cfg.Channels.EmailSMTPPassword),
		channel.NewSlackDispatcher(cfg.Channels.SlackWebhookURL),
		channel.NewTeamsDispatcher(cfg.Channels.TeamsWebhookURL),
		channel.NewWebhookDispatcher(cfg.Channels.WebhookURL),
		channel.NewRealtimeDispatcher(redis.Client, cfg.Channels.RealtimePrefix),
	)

	dispatcher := events.NewQueueDispatcher(cfg.Engine.EventQueueCapacity, logger)
	matcher := engine.NewMatcher(ruleRepo, logger)

	// The escalator announces level changes through the engine service, which
	// does not exist yet; bind the emit path lazily.
	var engineSvc *service.EngineService
	lateEmit := engine.EmitFunc(func(trigger domain.Trigger, evctx map[string]any) {
		if engineSvc != nil {
			_ = engineSvc.Emit(trigger, evctx, nil)
		}
	})
	escalator := engine.NewEscalator(escalationRepo, lateEmit, cfg.Engine.EscalationMaxLevel, cfg.Engine.EscalationInterval(), logger)

	engineSvc = service.NewEngineService(service.EngineDependencies{
		Dispatcher: dispatcher,
		Matcher:    matcher,
		Escalator:  escalator,
		Channels:   channels,
		Rules:      ruleRepo,
		Logs:       logRepo,
		Violations: violationRepo,
		Alerts:     alertRepo,
		Users:      userDir,
		Settings:   settingsRepo,
		Metrics:    metrics,
	}, cfg.Engine.DispatchTimeout(), logger)

	monitor := engine.NewSLAMonitor(ticketDir, slaConfigRepo, violationRepo, engineSvc.EmitFunc(), escalator, cfg.Engine.CriticalMargin, logger)
	engineSvc.SetMonitor(monitor)

	engineWorker := worker.NewEngineWorker(dispatcher, monitor, engineSvc, logger)
	if err := engineWorker.Start(cfg.Engine.ScanCronSpec); err != nil {
		logger.Fatal("failed to start engine worker", zap.Error(err))
	}

	ruleService := service.NewRuleService(ruleRepo, logger)
	settingsService := service.NewSettingsService(settingsRepo, logger)
	dashboardService := service.NewDashboardService(alertRepo, violationRepo, escalationRepo, logRepo)

	authMiddleware := auth.NewAuthMiddleware(auth.NewTokenVerifier(cfg.Auth.JWTSecret))

	app := fiber.New(fiber.Config{DisableStartupMessage: cfg.App.Env == "production"})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Events:         handlers.NewEventsHandler(engineSvc),
		Rules:          handlers.NewRulesHandler(ruleService),
		Engine:         handlers.NewEngineHandler(engineSvc),
		Dashboard:      handlers.NewDashboardHandler(dashboardService),
		Settings:       handlers.NewSettingsHandler(settingsService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	engineWorker.Stop()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
