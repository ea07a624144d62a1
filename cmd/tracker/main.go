package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	app_service "amp-whale-tracker/internal/application/service"
	"amp-whale-tracker/internal/domain/repository"
	domain_service "amp-whale-tracker/internal/domain/service"
	"amp-whale-tracker/internal/infrastructure/amp"
	"amp-whale-tracker/internal/infrastructure/cache"
	"amp-whale-tracker/internal/infrastructure/config"
	"amp-whale-tracker/internal/infrastructure/logger"
	"amp-whale-tracker/internal/infrastructure/messaging"
	"amp-whale-tracker/internal/infrastructure/sample"
	"amp-whale-tracker/internal/infrastructure/web"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.NewLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	// Create FX application
	app := fx.New(
		// Provide dependencies
		fx.Supply(cfg),
		fx.Supply(log),
		fx.Supply(&cfg.Cache),
		fx.Supply(&cfg.Alerts),
		fx.Provide(func() *zap.Logger { return log.Logger }),

		// Infrastructure providers
		fx.Provide(
			newResultStore,
			newTransferRepository,
			messaging.NewNATSAlertPublisher,
			web.NewHub,
		),

		// Domain services
		fx.Provide(
			domain_service.NewStatsService,
		),

		// Application providers
		fx.Provide(
			app_service.NewCachedQueryService,
			app_service.NewTrackerApplicationService,
			web.NewServer,
		),

		// Interface adapters
		fx.Provide(
			func(h *web.Hub) domain_service.SnapshotBroadcaster { return h },
			func(p *messaging.NATSAlertPublisher) domain_service.AlertPublisher { return p },
		),

		// Lifecycle hooks
		fx.Invoke(startTracker),
		fx.Invoke(startWebServer),

		// Configure logging
		fx.WithLogger(func() fxevent.Logger {
			return fxevent.NopLogger
		}),
	)

	// Start the application
	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		log.Error("Failed to start application", zap.Error(err))
		os.Exit(1)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down application...")

	// Stop the application
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Error("Failed to stop application gracefully", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Application stopped successfully")
}

// newResultStore selects the cache backend
func newResultStore(cfg *config.Config, log *logger.Logger) repository.ResultStore {
	if cfg.Cache.Backend == "redis" {
		return cache.NewRedisStore(&cfg.Cache.Redis, cfg.Cache.MaxEntries, cfg.Cache.Retention, log)
	}
	return cache.NewMemoryStore(cfg.Cache.MaxEntries, cfg.Cache.Retention)
}

// newTransferRepository selects the transfer source: the remote query
// endpoint, or the sample generator for demos without one.
func newTransferRepository(cfg *config.Config, log *logger.Logger) repository.TransferRepository {
	if cfg.Sample.Enabled {
		log.Info("Using sample transfer source", zap.Int64("seed", cfg.Sample.Seed))
		return sample.NewGenerator(cfg.Sample.Seed)
	}

	client := amp.NewClient(&cfg.Amp, log)
	builder := amp.NewQueryBuilder(cfg.Amp.Dataset)
	return amp.NewTransferRepository(client, builder, log)
}

// startTracker starts the refresh pipeline
func startTracker(
	lifecycle fx.Lifecycle,
	publisher *messaging.NATSAlertPublisher,
	store repository.ResultStore,
	tracker domain_service.TrackerService,
	log *zap.Logger,
	cfg *config.Config,
) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting whale tracker...")

			// Verify the Redis backend before serving from it
			if redisStore, ok := store.(*cache.RedisStore); ok {
				log.Info("Connecting to Redis cache", zap.String("addr", cfg.Cache.Redis.Addr))
				if err := redisStore.Ping(ctx); err != nil {
					return fmt.Errorf("failed to connect to Redis: %w", err)
				}
			}

			// Alerts are best effort; a down broker must not stop the dashboard
			if err := publisher.Connect(ctx); err != nil {
				log.Warn("Alert publisher unavailable", zap.Error(err))
			}

			if err := tracker.Start(ctx); err != nil {
				return fmt.Errorf("failed to start tracker: %w", err)
			}

			log.Info("Whale tracker started successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping whale tracker...")

			if err := tracker.Stop(); err != nil {
				log.Error("Failed to stop tracker", zap.Error(err))
			}
			if redisStore, ok := store.(*cache.RedisStore); ok {
				if err := redisStore.Close(); err != nil {
					log.Error("Failed to close Redis connection", zap.Error(err))
				}
			}
			return publisher.Disconnect()
		},
	})
}

// startWebServer starts the dashboard web server
func startWebServer(
	lifecycle fx.Lifecycle,
	server *web.Server,
	logger *logger.Logger,
) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			server.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping web server...")
			return server.Stop(ctx)
		},
	})
}
