package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/lead-dispatch/internal/api/http"
	"github.com/spec-kit/lead-dispatch/internal/api/http/handlers"
	"github.com/spec-kit/lead-dispatch/internal/auth"
	"github.com/spec-kit/lead-dispatch/internal/config"
	"github.com/spec-kit/lead-dispatch/internal/events"
	"github.com/spec-kit/lead-dispatch/internal/observability"
	"github.com/spec-kit/lead-dispatch/internal/persistence"
	"github.com/spec-kit/lead-dispatch/internal/repository"
	"github.com/spec-kit/lead-dispatch/internal/service"
	"github.com/spec-kit/lead-dispatch/internal/worker"
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
	userRepo := repository.NewUserRepository(pool)
	pipelineRepo := repository.NewPipelineRepository(pool)
	channelRepo := repository.NewChannelRepository(pool)
	queueRepo := repository.NewQueueRepository(pool)
	leadRepo := repository.NewLeadRepository(pool)
	ledgerRepo := repository.NewLedgerRepository(pool)
	ownerRepo := repository.NewQueueOwnerRepository(pool)
	interactionRepo := repository.NewInteractionRepository(pool)
	historyRepo := repository.NewAssignmentHistoryRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	eligibility := service.NewEligibilityService(service.EligibilityDependencies{
		PipelineRepo: pipelineRepo,
		QueueRepo:    queueRepo,
		UserRepo:     userRepo,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	distribution := service.NewDistributionService(service.DistributionDependencies{
		LedgerRepo:    ledgerRepo,
		UserRepo:      userRepo,
		Dispatcher:    dispatcher,
		Logger:        logger,
		Metrics:       metrics,
		ClaimAttempts: cfg.Distribution.ClaimAttempts,
		ClaimTimeout:  cfg.Distribution.ClaimTimeout(),
	})
	ownership := service.NewOwnershipService(ownerRepo, logger)
	assignment := service.NewAssignmentService(service.AssignmentDependencies{
		LeadRepo:        leadRepo,
		UserRepo:        userRepo,
		QueueRepo:       queueRepo,
		HistoryRepo:     historyRepo,
		InteractionRepo: interactionRepo,
		Eligibility:     eligibility,
		Distribution:    distribution,
		Ownership:       ownership,
		Dispatcher:      dispatcher,
		Logger:          logger,
		Metrics:         metrics,
	})
	routing := service.NewRoutingService(service.RoutingDependencies{
		ChannelRepo:     channelRepo,
		QueueRepo:       queueRepo,
		UserRepo:        userRepo,
		LeadRepo:        leadRepo,
		PipelineRepo:    pipelineRepo,
		InteractionRepo: interactionRepo,
		Ownership:       ownership,
		Assignment:      assignment,
		Dispatcher:      dispatcher,
		Logger:          logger,
		ReturnTimeout:   cfg.Distribution.ReturnTimeout(),
	})

	notification := service.NewNotificationService(dispatcher, redis, logger, cfg.Notification)
	worker.StartNotificationWorker(notification)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, cfg.Auth.OpsKeyHash)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Assignments:    handlers.NewAssignmentsHandler(assignment, ownership, distribution),
		Routing:        handlers.NewRoutingHandler(routing),
		AuthMiddleware: authMiddleware,
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
