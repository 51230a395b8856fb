package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/funnelboard/funnelboard-backend/api/controllers"
	analyticscontrollers "github.com/funnelboard/funnelboard-backend/api/controllers/analytics"
	"github.com/funnelboard/funnelboard-backend/api/middleware"
	"github.com/funnelboard/funnelboard-backend/internal/analytics"
	"github.com/funnelboard/funnelboard-backend/internal/dataset"
	"github.com/funnelboard/funnelboard-backend/pkg/bigquery"
	"github.com/funnelboard/funnelboard-backend/pkg/config"
	"github.com/funnelboard/funnelboard-backend/pkg/logger"
	"github.com/funnelboard/funnelboard-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	provider *dataset.Provider,
	redisClient redis.Pinger,
	bigqueryClient bigquery.Pinger,
	analyticsService analytics.Service,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, provider, redisClient, bigqueryClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/events", analyticscontrollers.Events(analyticsService, logg))
		r.Get("/events/export", analyticscontrollers.ExportEvents(analyticsService, logg))
		r.Get("/dimensions", analyticscontrollers.Dimensions(analyticsService, logg))
		r.Post("/funnel", analyticscontrollers.Funnel(analyticsService, logg))
		r.Post("/ratios", analyticscontrollers.Ratios(analyticsService, logg))
		r.Post("/comparison", analyticscontrollers.Comparison(analyticsService, logg))
		r.Post("/dataset/reload", analyticscontrollers.ReloadDataset(analyticsService, logg))
	})

	return r
}
