// Package insight renders scheduled cohort comparisons into a compact text
// report and publishes it for downstream analysis consumers.
package insight

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/funnelboard/funnelboard-backend/internal/analytics"
	"github.com/funnelboard/funnelboard-backend/internal/engine"
)

// maxReportRatios caps the ratio lines in the rendered report so the
// payload stays within one message.
const maxReportRatios = 12

// Payload is the message published for each scheduled comparison run. It
// carries the structured comparison next to the rendered report; the cohort
// summaries embed the filter specs that produced them, so consumers never
// have to re-derive which cohorts were compared.
type Payload struct {
	EventID      string             `json:"event_id"`
	GeneratedAt  time.Time          `json:"generated_at"`
	TableVersion string             `json:"table_version"`
	WindowStart  string             `json:"window_start"`
	WindowEnd    string             `json:"window_end"`
	Comparison   *engine.Comparison `json:"comparison"`
	Report       string             `json:"report"`
}

// NewPayload renders the comparison into a Payload ready for publishing.
func NewPayload(result *analytics.ComparisonResult, window engine.DateRange, now time.Time) Payload {
	return Payload{
		EventID:      uuid.NewString(),
		GeneratedAt:  now.UTC(),
		TableVersion: result.TableVersion,
		WindowStart:  window.Start.UTC().Format("2006-01-02"),
		WindowEnd:    window.End.UTC().Format("2006-01-02"),
		Comparison:   result.Comparison,
		Report:       FormatReport(result.Comparison),
	}
}

// FormatReport renders the comparison as aligned plain text, one funnel
// step per line plus the KPI deltas. Undefined percentages render as "n/a".
func FormatReport(cmp *engine.Comparison) string {
	var b strings.Builder

	b.WriteString("FUNNEL old vs new\n")
	fmt.Fprintf(&b, "%-24s %10s %10s %8s %12s %10s\n",
		"step", "old", "new", "delta", "retention_pp", "rel_change")
	for _, d := range cmp.StepDeltas {
		fmt.Fprintf(&b, "%-24s %10d %10d %+8d %12s %10s\n",
			d.EventAction, d.OldCount, d.NewCount, d.CountDelta,
			signedPct(d.RetentionDeltaPP), signedPct(d.RetentionRelativeChangePct))
	}

	b.WriteString("\nKPIS old vs new\n")
	fmt.Fprintf(&b, "%-24s %10s %10s %10s %10s\n", "kpi", "old", "new", "delta_pp", "rel_change")
	lines := 0
	for _, d := range cmp.KPIDeltas {
		if lines == maxReportRatios {
			break
		}
		fmt.Fprintf(&b, "%-24s %10s %10s %10s %10s\n",
			d.Name, pct(d.Old.RatioPct), pct(d.New.RatioPct), signedPct(d.DeltaPP), signedPct(d.RelativeChangePct))
		lines++
	}

	fmt.Fprintf(&b, "\nTOTAL EVENTS old=%d new=%d\n", cmp.Old.TotalEvents, cmp.New.TotalEvents)
	return b.String()
}

func pct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *v)
}

func signedPct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", *v)
}
