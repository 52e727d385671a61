package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/storefront/internal/api/http"
	"github.com/spec-kit/storefront/internal/api/http/handlers"
	"github.com/spec-kit/storefront/internal/auth"
	"github.com/spec-kit/storefront/internal/config"
	"github.com/spec-kit/storefront/internal/credential"
	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/events"
	"github.com/spec-kit/storefront/internal/observability"
	"github.com/spec-kit/storefront/internal/persistence"
	"github.com/spec-kit/storefront/internal/remote"
	"github.com/spec-kit/storefront/internal/session"
	"github.com/spec-kit/storefront/internal/worker"
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

	metrics := observability.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	redis, err := persistence.NewRedis(ctx, cfg.Redis, cfg.Credential.Backend == "redis", logger)
	if err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redis.Close()

	kv, err := persistence.CredentialKV(cfg.Credential, redis, pg, logger)
	if err != nil {
		logger.Fatal("failed to open credential store", zap.Error(err))
	}
	store := credential.NewStore(kv, cfg.Credential.Namespace)

	dispatcher := events.NewInMemoryDispatcher(func(e events.Event, err error) {
		logger.Warn("event handler failed", zap.String("type", string(e.Type)), zap.Error(err))
	})

	manager := session.NewManager(session.Dependencies{
		Store:         store,
		API:           remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout()),
		Events:        dispatcher,
		Logger:        logger,
		Metrics:       metrics,
		LogoutTimeout: cfg.Session.LogoutTimeout(),
		RefineTimeout: cfg.Remote.Timeout(),
	})
	defer manager.Close()
	manager.ListenForSignals()

	// Guards answer with a loading placeholder until each domain is hydrated.
	go manager.Boot(ctx)

	signalWorker := worker.NewSignalWorker(redis.Client, cfg.Session.SignalsChannel, dispatcher, logger)
	go func() {
		if err := signalWorker.Run(ctx); err != nil {
			logger.Warn("account signals unavailable", zap.Error(err))
		}
	}()

	routes := domain.Routes(cfg.Routes)
	deps := map[string]handlers.Pinger{"credentials": store}
	if pg.Configured() {
		deps["postgres"] = pg
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, manager, deps),
		Session: handlers.NewSessionHandler(manager, routes, logger),
		Pages:   handlers.NewPagesHandler(routes),
		Guard:   auth.NewGuardMiddleware(manager, routes, cfg.Session.HydrationWait(), logger, metrics),
		Routes:  routes,
		Metrics: metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	cancel()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
