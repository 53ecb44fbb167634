package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-intake/internal/api/http"
	"github.com/spec-kit/ticket-intake/internal/api/http/handlers"
	"github.com/spec-kit/ticket-intake/internal/auth"
	"github.com/spec-kit/ticket-intake/internal/config"
	"github.com/spec-kit/ticket-intake/internal/events"
	"github.com/spec-kit/ticket-intake/internal/model"
	"github.com/spec-kit/ticket-intake/internal/observability"
	"github.com/spec-kit/ticket-intake/internal/persistence"
	"github.com/spec-kit/ticket-intake/internal/repository"
	"github.com/spec-kit/ticket-intake/internal/service"
	"github.com/spec-kit/ticket-intake/internal/tagging"
	"github.com/spec-kit/ticket-intake/internal/worker"
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

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if !cfg.Auth.Configured() {
		logger.Warn("AUTH_API_KEY not configured; create and delete requests will be rejected")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var ledger repository.Ledger
	switch cfg.Ledger.Backend {
	case config.LedgerBackendPostgres:
		ledger = repository.NewPostgresLedger(pg.PoolHandle(), logger, metrics)
	default:
		ledger = repository.NewCSVLedger(cfg.Ledger.Path, logger, metrics)
	}
	if err := ledger.Init(ctx); err != nil {
		logger.Fatal("failed to init ledger", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, redis, logger)
	workerCtx, stopWorker := context.WithCancel(ctx)
	waitWorker := worker.StartNotificationWorker(workerCtx, notifications)

	tagger := tagging.NewTagger(model.NewHTTPClient(cfg.Model), cfg.Model, logger, metrics)
	ticketService := service.NewTicketService(service.TicketDependencies{
		Ledger:     ledger,
		Tagger:     tagger,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})

	checks := map[string]handlers.ReadinessCheck{
		"ledger": func(ctx context.Context) error {
			_, err := ledger.Scan(ctx)
			return err
		},
	}
	if pg.Enabled() {
		checks["postgres"] = pg.Ping
	}
	if redis.Enabled() {
		checks["redis"] = redis.Ping
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks),
		Tickets: handlers.NewTicketsHandler(ticketService),
		APIKey:  auth.NewAPIKeyMiddleware(cfg.Auth),
		Metrics: metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	stopWorker()
	waitWorker()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
