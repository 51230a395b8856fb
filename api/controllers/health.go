package controllers

import (
	"net/http"

	"github.com/funnelboard/funnelboard-backend/api/responses"
	"github.com/funnelboard/funnelboard-backend/internal/dataset"
	"github.com/funnelboard/funnelboard-backend/pkg/bigquery"
	"github.com/funnelboard/funnelboard-backend/pkg/config"
	pkgerrors "github.com/funnelboard/funnelboard-backend/pkg/errors"
	"github.com/funnelboard/funnelboard-backend/pkg/logger"
	"github.com/funnelboard/funnelboard-backend/pkg/redis"
)

type tableChecker interface {
	Current() (*dataset.Table, error)
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Funnelboard-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when the event table is loaded and every
// wired backing service answers a ping. Nil pingers are skipped so CSV
// deployments without Redis or BigQuery still report ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, table tableChecker, redisClient redis.Pinger, bigqueryClient bigquery.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("X-Funnelboard-Env", cfg.App.Env)

		snapshot, err := table.Current()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		checks := map[string]string{"dataset": "ok"}
		if redisClient != nil {
			if err := redisClient.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis ping failed"))
				return
			}
			checks["redis"] = "ok"
		}
		if bigqueryClient != nil {
			if err := bigqueryClient.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bigquery ping failed"))
				return
			}
			checks["bigquery"] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{
			"status":        "ready",
			"checks":        checks,
			"table_version": snapshot.Version(),
			"table_rows":    snapshot.Len(),
		})
	}
}
