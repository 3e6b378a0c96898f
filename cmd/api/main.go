package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/seed"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/suggestion"
	"github.com/spec-kit/helpdesk-service/internal/ticketid"
	"github.com/spec-kit/helpdesk-service/internal/worker"
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

	metrics := observability.NewMetrics()
	probes := map[string]handlers.Pinger{}

	var (
		userRepo   repository.UserRepository
		ticketRepo repository.TicketRepository
	)
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		pool := pg.PoolHandle()
		userRepo = repository.NewUserRepository(pool)
		ticketRepo = repository.NewTicketRepository(pool)
		probes["postgres"] = pg
	default:
		userRepo = repository.NewMemoryUserRepository()
		ticketRepo = repository.NewMemoryTicketRepository()
	}

	var counter ticketid.CounterStore
	switch cfg.Store.TicketIDStore {
	case config.BackendRedis:
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		counter = ticketid.NewRedisCounter(redis.Client, cfg.Store.TicketIDKey)
		probes["redis"] = redis
	default:
		counter = ticketid.NewMemoryCounter(0)
	}
	sequence := ticketid.NewSequence(counter)

	if cfg.Store.SeedDemoData {
		if err := seedStore(ctx, cfg.Store, userRepo, ticketRepo, sequence, logger); err != nil {
			logger.Fatal("failed to seed data", zap.Error(err))
		}
	} else {
		existing, err := ticketRepo.List(ctx)
		if err != nil {
			logger.Fatal("failed to read tickets", zap.Error(err))
		}
		ids := make([]string, 0, len(existing))
		for _, t := range existing {
			ids = append(ids, t.ID)
		}
		if err := sequence.Prime(ctx, ids); err != nil {
			logger.Fatal("failed to prime ticket ids", zap.Error(err))
		}
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notifier := worker.StartNotificationWorker(ctx, notificationService, dispatcher, logger)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		UserRepo:   userRepo,
		Sequence:   sequence,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	sessions := auth.NewSessionRegistry()
	sessionService := service.NewSessionService(userRepo, tokens, sessions, logger)
	intakeService := service.NewIntakeService(ctx, cfg.Intake.Delay(), ticketService, logger)

	provider := suggestion.New(cfg.Suggestion, &http.Client{}, logger, metrics)
	suggestionService := service.NewSuggestionService(ticketService, suggestion.NewTracker(ctx, provider))

	sessionService.OnLogout(intakeService.Forget)
	sessionService.OnLogout(suggestionService.Forget)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, probes),
		Auth:           handlers.NewAuthHandler(sessionService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Dashboard:      handlers.NewDashboardHandler(ticketService),
		Suggestions:    handlers.NewSuggestionsHandler(suggestionService),
		Chat:           handlers.NewChatHandler(intakeService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, sessions, userRepo),
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	if notifier != nil {
		notifier.Wait()
	}
}

func seedStore(ctx context.Context, cfg config.StoreConfig, users repository.UserRepository, tickets repository.TicketRepository, sequence *ticketid.Sequence, logger *zap.Logger) error {
	data, err := seed.Demo()
	if cfg.SeedFile != "" {
		data, err = seed.Load(cfg.SeedFile)
	}
	if err != nil {
		return err
	}
	return seed.Apply(ctx, data, users, tickets, sequence, logger)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
