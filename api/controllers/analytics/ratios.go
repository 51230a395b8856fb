package analytics

import (
	"net/http"

	"github.com/funnelboard/funnelboard-backend/api/responses"
	"github.com/funnelboard/funnelboard-backend/api/validators"
	"github.com/funnelboard/funnelboard-backend/internal/analytics"
	"github.com/funnelboard/funnelboard-backend/internal/engine"
	"github.com/funnelboard/funnelboard-backend/pkg/logger"
)

type ratiosRequest struct {
	Filter filterDTO `json:"filter" validate:"required"`
	// Ratios empty means the configured KPI set.
	Ratios []engine.RatioSpec `json:"ratios,omitempty" validate:"omitempty,max=50,dive"`
}

func Ratios(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var body ratiosRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		filter, err := body.Filter.toSpec()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := service.Ratios(ctx, analytics.RatiosRequest{Filter: filter, Specs: body.Ratios})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
