package analytics

import (
	"net/http"

	"github.com/funnelboard/funnelboard-backend/api/responses"
	"github.com/funnelboard/funnelboard-backend/api/validators"
	"github.com/funnelboard/funnelboard-backend/internal/analytics"
	"github.com/funnelboard/funnelboard-backend/pkg/logger"
)

type funnelRequest struct {
	Filter filterDTO `json:"filter" validate:"required"`
	// Steps is evaluated in the order given; empty means the configured
	// default funnel.
	Steps []string `json:"steps,omitempty" validate:"omitempty,max=20,dive,min=1"`
}

func Funnel(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var body funnelRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		filter, err := body.Filter.toSpec()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := service.Funnel(ctx, analytics.FunnelRequest{Filter: filter, Steps: body.Steps})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
