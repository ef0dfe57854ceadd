package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/itsm-service/internal/api/http"
	"github.com/spec-kit/itsm-service/internal/api/http/handlers"
	"github.com/spec-kit/itsm-service/internal/auth"
	"github.com/spec-kit/itsm-service/internal/config"
	"github.com/spec-kit/itsm-service/internal/events"
	"github.com/spec-kit/itsm-service/internal/observability"
	"github.com/spec-kit/itsm-service/internal/persistence"
	"github.com/spec-kit/itsm-service/internal/repository"
	"github.com/spec-kit/itsm-service/internal/service"
	"github.com/spec-kit/itsm-service/internal/sla"
	"github.com/spec-kit/itsm-service/internal/worker"
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
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	technicianRepo := repository.NewTechnicianRepository(pool)
	policyRepo := repository.NewCachedPolicyRepository(
		repository.NewSLAPolicyRepository(pool),
		redis.ClientHandle(),
		cfg.SLA.PolicyCacheTTL(),
		logger,
	)

	matcher := sla.NewMatcher(policyRepo)
	evaluator := sla.NewEvaluator(cfg.SLA.CriticalWindow(), cfg.SLA.WarningWindow())
	checker := sla.NewChecker(matcher)
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		CommentRepo:    commentRepo,
		TechnicianRepo: technicianRepo,
		Matcher:        matcher,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	slaService := service.NewSLAService(service.SLADependencies{
		PolicyRepo: policyRepo,
		TicketRepo: ticketRepo,
		Evaluator:  evaluator,
		Checker:    checker,
		Metrics:    metrics,
		Logger:     logger,
		SeedConfig: cfg.SLA,
	})
	authService := service.NewAuthService(cfg.Auth, technicianRepo)
	notificationService := service.NewNotificationService(dispatcher, logger)

	if cfg.SLA.SeedDefaults {
		if err := slaService.SeedDefaultPolicies(ctx); err != nil {
			logger.Fatal("failed to seed SLA policies", zap.Error(err))
		}
	}
	if err := authService.EnsureBootstrapAdmin(ctx); err != nil {
		logger.Fatal("failed to ensure bootstrap admin", zap.Error(err))
	}

	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), technicianRepo)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	app.Use(httptransport.RequestTimeout(cfg.App.RequestTimeout()))
	app.Use(observability.RequestLogger(logger, metrics))

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pg, redis, metrics, cfg.App.Version),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, slaService),
		SLA:            handlers.NewSLAHandler(slaService),
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
