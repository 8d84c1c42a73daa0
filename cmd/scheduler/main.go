// Command scheduler wires the store, registry, worker and coordinator
// together and runs the polling loop until it receives a shutdown signal.
// It also registers the bundled oven/cake sample workflow so a fresh
// checkout has something to run end to end.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rezkam/taskengine/internal/bakery"
	"github.com/rezkam/taskengine/internal/config"
	"github.com/rezkam/taskengine/internal/engine"
	"github.com/rezkam/taskengine/internal/postgres"
	"github.com/rezkam/taskengine/internal/registry"
	"github.com/rezkam/taskengine/pkg/observability"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "scheduler: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	lp, logger, err := observability.InitLogger(ctx, "taskengine-scheduler", cfg.Observability.OTelEnabled)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer shutdownWithTimeout(lp.Shutdown)
	slog.SetDefault(logger)

	tp, err := observability.InitTracerProvider(ctx, "taskengine-scheduler", cfg.Observability.OTelEnabled)
	if err != nil {
		return fmt.Errorf("failed to init tracer provider: %w", err)
	}
	defer shutdownWithTimeout(tp.Shutdown)

	mp, err := observability.InitMeterProvider(ctx, "taskengine-scheduler", cfg.Observability.OTelEnabled)
	if err != nil {
		return fmt.Errorf("failed to init meter provider: %w", err)
	}
	defer shutdownWithTimeout(mp.Shutdown)

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	reg := registry.NewBuilder()
	for _, t := range bakery.Tasks() {
		reg.Register(t)
	}
	builtRegistry := reg.Build()

	worker := engine.NewWorker(store, builtRegistry, nil)
	coordCfg := engine.CoordinatorConfig{
		PollInterval:            cfg.Coordinator.PollInterval(),
		CorePoolSize:            cfg.Coordinator.CorePoolSize,
		MaxPoolSize:             cfg.Coordinator.MaxPoolSize,
		QueueCapacity:           cfg.Coordinator.QueueCapacity,
		BatchSize:               cfg.Coordinator.BatchSize,
		ThreadNamePrefix:        cfg.Coordinator.ThreadNamePrefix,
		WaitForTasksOnShutdown:  cfg.Coordinator.WaitForTasksOnShutdown,
		AwaitTerminationSeconds: cfg.Coordinator.AwaitTerminationSeconds,
	}
	coordinator := engine.NewCoordinator(store, worker, coordCfg, nil)

	slog.InfoContext(ctx, "scheduler starting",
		"poll_interval", coordCfg.PollInterval,
		"batch_size", coordCfg.BatchSize,
		"core_pool_size", coordCfg.CorePoolSize,
		"max_pool_size", coordCfg.MaxPoolSize)

	coordinator.Run(ctx)

	slog.InfoContext(ctx, "shutting down, draining in-flight workers")
	coordinator.Shutdown()

	return nil
}

func openStore(ctx context.Context, dbCfg config.DatabaseConfig) (*postgres.Store, error) {
	poolCfg := postgres.PoolConfig{
		DSN:             dbCfg.DSN,
		MaxOpenConns:    dbCfg.MaxOpenConns,
		MaxIdleConns:    dbCfg.MaxIdleConns,
		ConnMaxLifetime: time.Duration(dbCfg.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(dbCfg.ConnMaxIdleTime) * time.Second,
	}
	if dbCfg.AutoMigrate {
		return postgres.NewStoreWithMigrations(ctx, poolCfg)
	}
	return postgres.NewStore(ctx, poolCfg)
}

func shutdownWithTimeout(shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to shut down observability provider", "error", err)
	}
}
