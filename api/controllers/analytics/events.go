package analytics

import (
	"net/http"

	"github.com/funnelboard/funnelboard-backend/api/responses"
	"github.com/funnelboard/funnelboard-backend/api/validators"
	"github.com/funnelboard/funnelboard-backend/internal/analytics"
	"github.com/funnelboard/funnelboard-backend/internal/engine"
	"github.com/funnelboard/funnelboard-backend/pkg/logger"
)

// Events serves the filtered, aggregated event table. group_by adds a
// secondary breakdown, cascade=true adds step-down ratios between rows and
// limit tightens the row cap for embedded widgets.
func Events(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		filter, err := parseFilterSpec(r, timeNowUTC())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		cascade, err := validators.ParseQueryBool(r, "cascade", false)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 1000)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := service.Overview(ctx, analytics.OverviewRequest{
			Filter:  filter,
			GroupBy: engine.GroupKey(r.URL.Query().Get("group_by")),
			Cascade: cascade,
			Limit:   limit,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Dimensions lists the distinct campaign, channel and landing url values
// inside the filtered window, for populating the dashboard's pickers.
func Dimensions(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		filter, err := parseFilterSpec(r, timeNowUTC())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := service.Dimensions(ctx, filter)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
