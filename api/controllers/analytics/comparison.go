package analytics

import (
	"net/http"

	"github.com/funnelboard/funnelboard-backend/api/responses"
	"github.com/funnelboard/funnelboard-backend/api/validators"
	"github.com/funnelboard/funnelboard-backend/internal/analytics"
	"github.com/funnelboard/funnelboard-backend/pkg/logger"
)

type comparisonRequest struct {
	Old   filterDTO `json:"old" validate:"required"`
	New   filterDTO `json:"new" validate:"required"`
	Steps []string  `json:"steps,omitempty" validate:"omitempty,max=20,dive,min=1"`
}

// Comparison runs both cohort filters against the same table snapshot and
// returns per-step and per-KPI deltas.
func Comparison(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var body comparisonRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		oldFilter, err := body.Old.toSpec()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		newFilter, err := body.New.toSpec()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := service.Comparison(ctx, analytics.ComparisonRequest{
			OldFilter: oldFilter,
			NewFilter: newFilter,
			Steps:     body.Steps,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
