package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/invest-access/internal/api/http"
	"github.com/spec-kit/invest-access/internal/api/http/handlers"
	"github.com/spec-kit/invest-access/internal/auth"
	"github.com/spec-kit/invest-access/internal/config"
	"github.com/spec-kit/invest-access/internal/gateway"
	"github.com/spec-kit/invest-access/internal/observability"
	"github.com/spec-kit/invest-access/internal/persistence"
	"github.com/spec-kit/invest-access/internal/repository"
	"github.com/spec-kit/invest-access/internal/service"
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

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	pool := pg.PoolHandle()
	accountRepo := repository.NewAccountRepository(pool)
	generationRepo := repository.NewGenerationRepository(redis.Client)
	activityRepo := repository.NewActivityRepository(redis.Client, 0)
	gw := gateway.NewRedisGateway(redis.Client, cfg.Sync.Channel, logger)
	guard := auth.NewGuard(nil)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	verifier, err := service.NewSignatureVerifier(*cfg, logger)
	if err != nil {
		logger.Fatal("invalid signature verifier configuration", zap.Error(err))
	}

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		AccountRepo:    accountRepo,
		ChallengeRepo:  repository.NewChallengeRepository(redis.Client),
		GenerationRepo: generationRepo,
		Verifier:       verifier,
		TokenManager:   tokens,
	})
	adminService := service.NewAdminService(service.AdminDependencies{
		AccountRepo:    accountRepo,
		ProjectRepo:    repository.NewProjectRepository(pool),
		ContractRepo:   repository.NewContractRepository(pool),
		GenerationRepo: generationRepo,
		ActivityRepo:   activityRepo,
		Forwarder:      gw,
		Logger:         logger,
	})
	syncService := service.NewSyncService(service.SyncDependencies{
		Guard:        guard,
		Forwarder:    gw,
		ActivityRepo: activityRepo,
		InboxRepo:    repository.NewInboxRepository(redis.Client, 0),
		Logger:       logger,
	})

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version,
			handlers.Dependency{Name: "postgres", Pinger: pg},
			handlers.Dependency{Name: "redis", Pinger: redis}),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(adminService, guard),
		Admin:          handlers.NewAdminHandler(adminService),
		Sync:           handlers.NewSyncHandler(syncService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, accountRepo, generationRepo),
		Guard:          guard,
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
