package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/funnelboard/funnelboard-backend/internal/analytics"
	"github.com/funnelboard/funnelboard-backend/internal/dataset"
	"github.com/funnelboard/funnelboard-backend/internal/insight"
	"github.com/funnelboard/funnelboard-backend/pkg/bigquery"
	"github.com/funnelboard/funnelboard-backend/pkg/cache"
	"github.com/funnelboard/funnelboard-backend/pkg/config"
	"github.com/funnelboard/funnelboard-backend/pkg/logger"
	"github.com/funnelboard/funnelboard-backend/pkg/metrics"
	"github.com/funnelboard/funnelboard-backend/pkg/pubsub"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "insight-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "insight-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if !cfg.Insight.Enabled {
		logg.Info(ctx, "insight worker disabled, exiting")
		return
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	var source dataset.Source
	switch cfg.Dataset.Source {
	case config.DatasetSourceBigQuery:
		bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
		requireResource(ctx, logg, "bigquery client", err)
		defer func() {
			if err := bqClient.Close(); err != nil {
				logg.Error(ctx, "failed to close bigquery client", err)
			}
		}()
		source = dataset.NewBigQuerySource(bqClient, cfg.BigQuery.WindowDays, cfg.BigQuery.RowLimit)
	default:
		source = dataset.NewCSVSource(cfg.Dataset.CSVPath)
	}

	provider := dataset.NewProvider(source, logg)
	_, err = provider.Reload(ctx)
	requireResource(ctx, logg, "event table", err)

	// The worker never serves concurrent dashboards, so a cache buys nothing.
	analyticsService, err := analytics.NewService(provider, cache.Noop{}, metrics.NewQueryMetrics(nil), logg, cfg.Analytics)
	requireResource(ctx, logg, "analytics service", err)

	worker, err := insight.NewWorker(analyticsService, pubsubClient, logg, cfg.Insight)
	requireResource(ctx, logg, "insight worker", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Insight.Interval.String(),
	})
	logg.Info(runCtx, "insight worker ready")

	if err := worker.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "insight worker failed", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
