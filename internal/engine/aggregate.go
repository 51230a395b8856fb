package engine

import "sort"

// GroupKey selects the secondary grouping dimension for AggregateBy.
type GroupKey string

const (
	GroupByCampaign   GroupKey = "campaign"
	GroupByChannel    GroupKey = "channel"
	GroupByLandingURL GroupKey = "landing_url"
)

func (k GroupKey) Valid() bool {
	switch k {
	case GroupByCampaign, GroupByChannel, GroupByLandingURL:
		return true
	}
	return false
}

func (k GroupKey) valueOf(rec Record) string {
	switch k {
	case GroupByCampaign:
		return rec.Campaign
	case GroupByChannel:
		return rec.Channel
	case GroupByLandingURL:
		return rec.LandingURL
	}
	return ""
}

// Aggregate groups records by event action and sums their counts. Rows come
// back sorted by total count descending, ties broken by event action
// ascending, so the output order is deterministic. Only actions present in
// the input appear; zero-padding is the funnel engine's job.
func Aggregate(records []Record) []AggregateRow {
	totals := make(map[string]int64, len(records))
	for _, rec := range records {
		totals[rec.EventAction] += rec.Count
	}

	rows := make([]AggregateRow, 0, len(totals))
	for action, total := range totals {
		rows = append(rows, AggregateRow{EventAction: action, TotalCount: total})
	}
	sortAggregateRows(rows)
	return rows
}

// AggregateBy produces one aggregate table per value of the secondary key.
func AggregateBy(records []Record, key GroupKey) map[string][]AggregateRow {
	buckets := make(map[string][]Record)
	for _, rec := range records {
		group := key.valueOf(rec)
		buckets[group] = append(buckets[group], rec)
	}

	out := make(map[string][]AggregateRow, len(buckets))
	for group, recs := range buckets {
		out[group] = Aggregate(recs)
	}
	return out
}

// Cascade annotates each row with its count as a percentage of the row
// above. The table view shows this next to raw counts.
func Cascade(rows []AggregateRow) []CascadeRow {
	out := make([]CascadeRow, len(rows))
	for i, row := range rows {
		out[i] = CascadeRow{AggregateRow: row}
		if i == 0 {
			out[i].CascadeRatioPct = ptr(100)
			continue
		}
		prev := rows[i-1].TotalCount
		if prev > 0 {
			out[i].CascadeRatioPct = ptr(float64(row.TotalCount) / float64(prev) * 100)
		}
	}
	return out
}

// CountFor looks up one action's total in an aggregate table. Absent
// actions count as 0.
func CountFor(rows []AggregateRow, action string) int64 {
	for _, row := range rows {
		if row.EventAction == action {
			return row.TotalCount
		}
	}
	return 0
}

// TotalEvents sums every row of an aggregate table.
func TotalEvents(rows []AggregateRow) int64 {
	var total int64
	for _, row := range rows {
		total += row.TotalCount
	}
	return total
}

func sortAggregateRows(rows []AggregateRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalCount != rows[j].TotalCount {
			return rows[i].TotalCount > rows[j].TotalCount
		}
		return rows[i].EventAction < rows[j].EventAction
	})
}
