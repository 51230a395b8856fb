package analytics

import (
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/funnelboard/funnelboard-backend/api/responses"
	"github.com/funnelboard/funnelboard-backend/internal/analytics"
	"github.com/funnelboard/funnelboard-backend/pkg/logger"
)

// ExportEvents streams the aggregated table as a CSV download. The export
// is never truncated regardless of the dashboard row cap.
func ExportEvents(service analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		filter, err := parseFilterSpec(r, timeNowUTC())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := service.Export(ctx, filter)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="events.csv"`)

		writer := csv.NewWriter(w)
		_ = writer.Write([]string{"event_action", "total_count"})
		for _, row := range result.Rows {
			_ = writer.Write([]string{row.EventAction, strconv.FormatInt(row.TotalCount, 10)})
		}
		writer.Flush()
	}
}
