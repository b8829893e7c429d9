package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/invest-access/internal/admin"
	"github.com/spec-kit/invest-access/internal/client"
	"github.com/spec-kit/invest-access/internal/config"
	"github.com/spec-kit/invest-access/internal/dashboard"
	"github.com/spec-kit/invest-access/internal/domain"
	"github.com/spec-kit/invest-access/internal/events"
	"github.com/spec-kit/invest-access/internal/gateway"
	"github.com/spec-kit/invest-access/internal/observability"
	"github.com/spec-kit/invest-access/internal/persistence"
	"github.com/spec-kit/invest-access/internal/session"
	"github.com/spec-kit/invest-access/internal/syncer"
	"github.com/spec-kit/invest-access/internal/views"
	"github.com/spec-kit/invest-access/internal/worker"
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

	kind, err := syncer.ParseKind(cfg.Console.Dashboard)
	if err != nil {
		logger.Fatal("invalid CONSOLE_DASHBOARD", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var store *session.Store
	api := client.New(client.Options{
		BaseURL: cfg.Sync.APIBaseURL,
		Timeout: cfg.Sync.RequestTimeout(),
		Token:   func() string { return store.Identity().Token },
		Logger:  logger,
	})
	store = session.NewStore(api, credentialStore(cfg, redis, logger), logger)

	origin := uuid.NewString()
	metrics := observability.NewMetrics()
	bus := events.NewBus(events.BusOptions{
		Forwarder:      syncer.NewRemoteForwarder(api),
		ForwardTimeout: cfg.Sync.ForwardTimeout(),
		QueueSize:      cfg.Sync.ForwardQueueSize,
		Origin:         origin,
		Logger:         logger,
		Metrics:        metrics,
	})
	defer bus.Close()

	out := &syncWriter{w: os.Stdout}
	sh := &shell{store: store, api: api, kind: kind, out: out}

	core := dashboard.New(dashboard.Options{
		Store:    store,
		Bus:      bus,
		Profiles: api,
		Notifier: syncer.NotifierFunc(sh.notify),
		Logger:   logger,
	})
	defer core.Close()

	sh.core = core
	sh.newCache = cacheFactory(kind, viewFetchers(api, store), store, views.Options{
		RefetchTimeout: cfg.Console.RefetchTimeout,
		Logger:         logger,
	})
	sh.actions = admin.New(admin.Options{
		API:        api,
		Session:    store,
		Bus:        bus,
		Propagator: syncer.NewPropagator(api, logger, metrics),
		Logger:     logger,
	})

	store.OnChange(func(prev, next domain.Identity) {
		logger.Info("session changed",
			zap.Bool("authenticated", next.Authenticated()),
			zap.String("role", string(next.Role)))
	})

	ingress := worker.NewIngressWorker(worker.IngressOptions{
		Listen:     worker.FromGateway(gateway.NewRedisGateway(redis.Client, cfg.Sync.Channel, logger)),
		Sink:       bus,
		Origin:     origin,
		MinBackoff: cfg.Console.IngressMinBackoff,
		MaxBackoff: cfg.Console.IngressMaxBackoff,
		Logger:     logger,
	})
	go ingress.Run(ctx)

	if identity, err := store.Restore(ctx); err != nil {
		logger.Info("no session restored", zap.Error(err))
	} else if identity.Authenticated() {
		sh.printf("Welcome back %s (%s)", identity.Address, identity.Role)
		if err := core.RefreshProfile(ctx); err != nil {
			logger.Warn("profile refresh failed", zap.Error(err))
		}
	}

	sh.printf("%s dashboard console. Type 'help' for commands.", kind)
	sh.run(ctx, os.Stdin)

	logger.Info("console stopped",
		zap.Any("deliveries", metrics.Sync().Deliveries),
		zap.Any("forwards", metrics.Sync().Forwards))
}

func credentialStore(cfg *config.Config, redis *persistence.Redis, logger *zap.Logger) session.CredentialStore {
	switch cfg.Console.CredentialBackend {
	case "redis":
		return session.NewRedisCredentialStore(redis.Client, cfg.Console.CredentialKey)
	case "file":
		return session.NewFileCredentialStore(cfg.Console.CredentialFile, cfg.Console.CredentialKey)
	default:
		logger.Warn("unknown credential backend; using file", zap.String("backend", cfg.Console.CredentialBackend))
		return session.NewFileCredentialStore(cfg.Console.CredentialFile, cfg.Console.CredentialKey)
	}
}
