package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/rodrigofm92/chamado-import-service/internal/api/http"
	"github.com/rodrigofm92/chamado-import-service/internal/api/http/handlers"
	"github.com/rodrigofm92/chamado-import-service/internal/config"
	"github.com/rodrigofm92/chamado-import-service/internal/events"
	"github.com/rodrigofm92/chamado-import-service/internal/observability"
	"github.com/rodrigofm92/chamado-import-service/internal/persistence"
	"github.com/rodrigofm92/chamado-import-service/internal/repository"
	"github.com/rodrigofm92/chamado-import-service/internal/service"
	"github.com/rodrigofm92/chamado-import-service/internal/worker"
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

	mongo, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
	if err != nil {
		logger.Fatal("failed to connect mongodb", zap.Error(err))
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		mongo.Close(closeCtx)
	}()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	batchRepo := repository.NewImportBatchRepository(pool)
	interactionRepo := repository.NewInteractionRepository(mongo.Database())

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	enrichmentService := service.NewEnrichmentService(cfg.Classifier, service.EnrichmentDependencies{
		TicketRepo: ticketRepo,
		BatchRepo:  batchRepo,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	importService := service.NewImportService(service.ImportDependencies{
		BatchRepo:       batchRepo,
		TicketRepo:      ticketRepo,
		InteractionRepo: interactionRepo,
		Enrichment:      enrichmentService,
		Dispatcher:      dispatcher,
		Metrics:         metrics,
		Logger:          logger,
	})
	ticketService := service.NewTicketService(ticketRepo, interactionRepo, redis, logger)
	ticketService.RegisterInvalidation(dispatcher)

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, mongo, redis)
	importHandler := handlers.NewImportHandler(importService)
	ticketsHandler := handlers.NewTicketsHandler(ticketService)
	enrichmentHandler := handlers.NewEnrichmentHandler(enrichmentService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:     healthHandler,
		Imports:    importHandler,
		Tickets:    ticketsHandler,
		Enrichment: enrichmentHandler,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
