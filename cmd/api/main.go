package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/funnelboard/funnelboard-backend/api/routes"
	"github.com/funnelboard/funnelboard-backend/internal/analytics"
	"github.com/funnelboard/funnelboard-backend/internal/dataset"
	"github.com/funnelboard/funnelboard-backend/pkg/bigquery"
	"github.com/funnelboard/funnelboard-backend/pkg/cache"
	"github.com/funnelboard/funnelboard-backend/pkg/config"
	"github.com/funnelboard/funnelboard-backend/pkg/logger"
	"github.com/funnelboard/funnelboard-backend/pkg/metrics"
	"github.com/funnelboard/funnelboard-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	queryMetrics := metrics.NewQueryMetrics(registry)

	var redisClient *redis.Client
	if cfg.Cache.Backend == config.CacheBackendRedis {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		requireResource(ctx, logg, "redis", err)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(ctx, "failed to close redis client", err)
			}
		}()
	}

	var bqClient *bigquery.Client
	var source dataset.Source
	switch cfg.Dataset.Source {
	case config.DatasetSourceBigQuery:
		bqClient, err = bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
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
	table, err := provider.Reload(ctx)
	requireResource(ctx, logg, "event table", err)
	queryMetrics.SetDatasetRows(table.Len())

	var queryCache cache.Cache
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		queryCache = cache.NewRedis(redisClient, cfg.Cache.TTL, logg)
	case config.CacheBackendMemory:
		queryCache = cache.NewMemory(cfg.Cache.TTL)
	default:
		queryCache = cache.Noop{}
	}

	analyticsService, err := analytics.NewService(provider, queryCache, queryMetrics, logg, cfg.Analytics)
	requireResource(ctx, logg, "analytics service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	runCtx := logg.WithFields(ctx, map[string]any{
		"env":           cfg.App.Env,
		"addr":          addr,
		"source":        source.Name(),
		"table_version": table.Version()[:12],
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, provider, pingerOrNil(redisClient), bigqueryPingerOrNil(bqClient), analyticsService, registry),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(runCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// A nil *Client stuffed into an interface is not a nil interface; these
// keep the readiness handler's nil checks honest.
func pingerOrNil(c *redis.Client) redis.Pinger {
	if c == nil {
		return nil
	}
	return c
}

func bigqueryPingerOrNil(c *bigquery.Client) bigquery.Pinger {
	if c == nil {
		return nil
	}
	return c
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
