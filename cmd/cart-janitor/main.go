package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/groupcart-backend/internal/cart"
	"github.com/angelmondragon/groupcart-backend/internal/janitor"
	"github.com/angelmondragon/groupcart-backend/pkg/config"
	"github.com/angelmondragon/groupcart-backend/pkg/db"
	"github.com/angelmondragon/groupcart-backend/pkg/logger"
	"github.com/angelmondragon/groupcart-backend/pkg/metrics"
	"github.com/angelmondragon/groupcart-backend/pkg/migrate"
	"github.com/angelmondragon/groupcart-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cart-janitor"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cart-janitor",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "cart janitor stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	janitorMetrics := metrics.NewJanitorMetrics(prometheus.DefaultRegisterer)
	lock, err := janitor.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), 0)
	if err != nil {
		return fmt.Errorf("janitor lock: %w", err)
	}

	retention, err := janitor.NewGuestCartRetentionJob(janitor.GuestCartRetentionJobParams{
		Logger:    logg,
		DB:        dbClient,
		Store:     cart.NewRepository(dbClient.DB()),
		Cache:     cart.NewCache(redisClient, cfg.Cart.CacheTTL, logg, nil),
		Metrics:   janitorMetrics,
		Retention: cfg.Cart.GuestRetention,
		BatchSize: cfg.Cart.JanitorBatchSize,
	})
	if err != nil {
		return fmt.Errorf("guest cart retention job: %w", err)
	}

	service, err := janitor.NewService(janitor.ServiceParams{
		Logger:   logg,
		Registry: janitor.NewRegistry(retention),
		Lock:     lock,
		Metrics:  janitorMetrics,
		Interval: cfg.Cart.JanitorInterval,
	})
	if err != nil {
		return fmt.Errorf("janitor service: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "starting cart janitor")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "cart janitor shutting down gracefully")
	return nil
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cart-janitor:" + env
}
