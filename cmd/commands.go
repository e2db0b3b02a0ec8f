package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/forager/internal/config"
	"github.com/UnknownOlympus/forager/internal/events"
	"github.com/UnknownOlympus/forager/internal/metrics"
	"github.com/UnknownOlympus/forager/internal/places"
	"github.com/UnknownOlympus/forager/internal/repository"
	"github.com/UnknownOlympus/forager/internal/service"
	"github.com/UnknownOlympus/forager/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/spf13/cobra"
)

const pushJobName = "forager"

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "forager",
		Short:         "Harvest places from the Places API into the places table.",
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML file with targets, keywords and other settings.")

	root.AddCommand(newRunCommand(&configPath))
	root.AddCommand(newServeCommand(&configPath))

	return root
}

func newRunCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Harvest once and exit.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger := setupLogger(cfg.Env)

			reg := prometheus.NewRegistry()
			app, err := newApplication(ctx, cfg, logger, reg)
			if err != nil {
				return err
			}
			defer app.Close(ctx)

			summary, runErr := app.service.RunOnce(ctx)

			if cfg.Metrics.Pushgateway != "" {
				pusher := push.New(cfg.Metrics.Pushgateway, pushJobName).Gatherer(reg)
				if err = pusher.PushContext(ctx); err != nil {
					logger.WarnContext(ctx, "Failed to push metrics", "url", cfg.Metrics.Pushgateway, "error", err)
				}
			}

			if runErr != nil {
				return runErr
			}

			logger.InfoContext(ctx, "Done.",
				"collected", summary.Stats.Collected,
				"persisted", summary.Stats.Persisted,
				"failed_batches", summary.Stats.FailedBatches)
			return nil
		},
	}
}

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Harvest periodically and expose health and metrics endpoints.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger := setupLogger(cfg.Env)

			// Create a separate registry for metrics with exemplar
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())
			reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			app, err := newApplication(ctx, cfg, logger, reg)
			if err != nil {
				return err
			}
			defer app.Close(ctx)

			logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.")

			// Start the monitoring server in a goroutine so the service loop owns this one.
			go startMonitoringServer(ctx, logger, reg, app.pool, cfg.Port)

			app.service.Run(ctx)

			logger.InfoContext(ctx, "Application stopped gracefully.")
			return nil
		},
	}
}

// application bundles the harvest service with the resources it owns.
type application struct {
	log       *slog.Logger
	pool      *pgxpool.Pool
	publisher events.Publisher
	service   *service.HarvestService
}

// newApplication connects to the database and the optional outputs and wires the harvest service.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	reg prometheus.Registerer,
) (*application, error) {
	appMetrics := metrics.NewMetrics(reg)

	fetcher, err := places.NewFetcher(places.ProviderConfig{
		Type:      places.ProviderType(cfg.Provider.Type),
		APIKey:    cfg.Provider.APIKey,
		BaseURL:   cfg.Provider.BaseURL,
		RateLimit: cfg.Provider.RateLimit,
		Timeout:   cfg.Search.Timeout,
		PageDelay: cfg.Search.PageDelay,
		Metrics:   appMetrics,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create places provider: %w", err)
	}
	logger.InfoContext(ctx, "Places provider initialized", "type", cfg.Provider.Type)

	pool, err := repository.NewDatabase(
		ctx, cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	repo := repository.NewRepository(pool, logger, cfg.Loader.Table)

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		logger.InfoContext(ctx, "Discovery events enabled", "topic", cfg.Kafka.Topic)
	}

	var snapshots storage.SnapshotStore = storage.NopSnapshotStore{}
	if cfg.Snapshot.Endpoint != "" {
		s3, errS3 := storage.NewS3SnapshotStore(ctx, storage.S3Config{
			Endpoint:  cfg.Snapshot.Endpoint,
			AccessKey: cfg.Snapshot.AccessKey,
			SecretKey: cfg.Snapshot.SecretKey,
			Bucket:    cfg.Snapshot.Bucket,
			UseSSL:    cfg.Snapshot.UseSSL,
		}, logger)
		if errS3 != nil {
			pool.Close()
			_ = publisher.Close()
			return nil, fmt.Errorf("failed to set up snapshot storage: %w", errS3)
		}
		snapshots = s3
	}

	harvest := service.NewHarvestService(logger, fetcher, repo, publisher, snapshots, appMetrics, service.Settings{
		Targets:   cfg.Search.Targets,
		Keywords:  cfg.Search.Keywords,
		Radius:    cfg.Search.Radius,
		Language:  cfg.Search.Language,
		BatchSize: cfg.Loader.BatchSize,
		Interval:  cfg.Interval,
	})

	return &application{log: logger, pool: pool, publisher: publisher, service: harvest}, nil
}

// Close releases the database pool and flushes pending events.
func (a *application) Close(ctx context.Context) {
	if err := a.publisher.Close(); err != nil {
		a.log.ErrorContext(ctx, "Failed to close discovery publisher", "error", err)
	}
	a.pool.Close()
}
