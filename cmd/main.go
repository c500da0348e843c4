package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"service-finder/internal/events"
	"service-finder/internal/feed"
	"service-finder/internal/providers"
	"service-finder/internal/session"
	"service-finder/internal/store/memory"
	mongostore "service-finder/internal/store/mongo"
	pgstore "service-finder/internal/store/postgres"
	"service-finder/internal/users"
	"service-finder/migrations"
	"service-finder/pkg/config"
	"service-finder/pkg/db"
	"service-finder/pkg/httpx"
	"service-finder/pkg/jwt"
	"service-finder/pkg/kafka"
	"service-finder/pkg/logger"
	"service-finder/pkg/mongo"
	rredis "service-finder/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.Init("service-finder", "development", "info")
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.Init("service-finder", cfg.Env, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("service-finder stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── 1. JWT ──
	if err := jwt.Init(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL); err != nil {
		return err
	}

	// ── 2. Document store ──
	userStore, providerStore, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	// ── 3. Redis (optional) ──
	var (
		limiter     httpx.RateLimiter
		revocations session.Revocations
	)
	if cfg.Redis.Addr != "" {
		redisClient, err := rredis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		limiter, revocations = redisClient, redisClient
	} else {
		mem := httpx.NewMemoryRateLimiter()
		defer mem.Close()
		limiter, revocations = mem, session.NewMemoryRevocations()
	}

	// ── 4. Events and live feed ──
	hub := feed.NewHub(cfg.HTTP.AllowedOrigins)
	defer hub.Close()

	var publisher events.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient := kafka.NewClient(cfg.Kafka.Brokers)
		defer kafkaClient.Close()
		if err := kafkaClient.EnsureTopics(ctx, events.Topics()...); err != nil {
			return err
		}
		feed.NewRelay(kafkaClient, hub).Start(ctx)
		publisher = kafkaClient
	} else {
		log.Info().Msg("no kafka brokers configured; events stay in process")
		publisher = feed.Fanout{Hub: hub}
	}

	// ── 5. Metrics ──
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := httpx.NewMetrics(registry)
	if err != nil {
		return err
	}

	// ── 6. HTTP ──
	handler := newRouter(routerDeps{
		log:         log,
		cfg:         cfg,
		users:       users.NewService(userStore, publisher, cfg.Auth.BcryptCost),
		providers:   providers.NewService(providerStore, publisher, cfg.Auth.BcryptCost),
		revocations: revocations,
		limiter:     limiter,
		hub:         hub,
		metrics:     metrics,
		registry:    registry,
	})
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.Store.Driver).Msg("service-finder listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// ── 7. Graceful shutdown ──
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutCtx, shutCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownDeadline)
	defer shutCancel()
	cancel() // stop consumers
	return srv.Shutdown(shutCtx)
}

func openStore(ctx context.Context, cfg config.StoreConfig) (users.Store, providers.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.RunMigrations(ctx, migrations.FS); err != nil {
			database.Close()
			return nil, nil, nil, err
		}
		return pgstore.NewUsers(database.Pool), pgstore.NewProviders(database.Pool), database.Close, nil
	case config.DriverMongo:
		client, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := client.EnsureIndexes(ctx); err != nil {
			_ = client.Close(context.Background())
			return nil, nil, nil, err
		}
		closeFn := func() { _ = client.Close(context.Background()) }
		return mongostore.NewUsers(client.DB), mongostore.NewProviders(client.DB), closeFn, nil
	default:
		return memory.NewUsers(), memory.NewProviders(), func() {}, nil
	}
}
