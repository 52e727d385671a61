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
	"github.com/spec-kit/storefront/internal/config"
	"github.com/spec-kit/storefront/internal/observability"
	"github.com/spec-kit/storefront/internal/persistence"
	"github.com/spec-kit/storefront/internal/repository"
	"github.com/spec-kit/storefront/internal/service"
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
	logger = logger.Named("devapi")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	redis, err := persistence.NewRedis(ctx, cfg.Redis, false, logger)
	if err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redis.Close()

	accounts := repository.NewMemoryAccountRepository()
	if pg.Configured() {
		accounts = repository.NewAccountRepository(pg.Pool)
	}

	accountService := service.NewAccountService(cfg.DevAPI, service.AccountDependencies{
		Accounts: accounts,
		Signals:  worker.NewSignalPublisher(redis.Client, cfg.Session.SignalsChannel),
		Logger:   logger,
	})
	if err := accountService.Seed(ctx, cfg.DevAPI.Accounts); err != nil {
		logger.Fatal("failed to seed accounts", zap.Error(err))
	}

	deps := map[string]handlers.Pinger{"redis": redis}
	if pg.Configured() {
		deps["postgres"] = pg
	}

	app := fiber.New(fiber.Config{AppName: "storefront-devapi"})
	httptransport.RegisterMiddlewares(app, logger, nil, cfg.App.RequestTimeout())
	httptransport.RegisterDevAPIRoutes(app, httptransport.DevAPIRouteConfig{
		Health:   handlers.NewHealthHandler("storefront-devapi", cfg.App.Version, nil, deps),
		Accounts: handlers.NewAccountsHandler(accountService),
	})

	go func() {
		if err := app.Listen(cfg.DevAPI.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))

	_ = app.Shutdown()
}
