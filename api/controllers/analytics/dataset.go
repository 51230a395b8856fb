package analytics

import (
	"net/http"

	"github.com/funnelboard/funnelboard-backend/api/responses"
	"github.com/funnelboard/funnelboard-backend/internal/analytics"
	"github.com/funnelboard/funnelboard-backend/pkg/logger"
)

// ReloadDataset refreshes the event table from its source and drops all
// memoized query results.
func ReloadDataset(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		result, err := service.Reload(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
