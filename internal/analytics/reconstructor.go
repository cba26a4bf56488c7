// v1
// internal/analytics/reconstructor.go
package analytics

import (
	"sort"
	"time"
)

// ReconstructDay rebuilds the total waste generated over one day of
// readings for the given metric. The sensors report current level, which
// resets downward whenever the bin is emptied; summing raw deltas would
// count every pickup as negative generation. Instead the cumulative
// signal is rebuilt step by step:
//
//   - a decrease within the drop threshold is sensor noise or normal
//     accumulation and contributes its signed delta;
//   - a decrease beyond the threshold is a pickup, and the post-pickup
//     level itself is new waste accumulated after emptying.
//
// A transient upward spike is indistinguishable from genuine accumulation
// here and is counted as generation; that approximation is accepted
// rather than papered over with more filtering.
//
// Fewer than two points carry no rate information and yield zero.
func (e *Engine) ReconstructDay(points []NormalizedPoint, metric Metric) float64 {
	if len(points) < 2 {
		return 0
	}

	sorted := make([]NormalizedPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	threshold := e.dropThreshold(metric)
	first := sorted[0].MetricValue(metric)
	cumulative := first
	prev := first
	for _, p := range sorted[1:] {
		v := p.MetricValue(metric)
		if v >= prev-threshold {
			cumulative += v - prev
		} else {
			cumulative += v
		}
		prev = v
	}

	total := cumulative - first
	if total < 0 {
		return 0
	}
	return total
}

// DailyTotals reconstructs one total per calendar day of the display
// timezone across [from, to). Days without enough readings emit an
// explicit zero so weekly charts keep one bar per day.
func (e *Engine) DailyTotals(points []NormalizedPoint, metric Metric, from, to time.Time) []DailyTotal {
	if !from.Before(to) {
		return nil
	}

	byDay := make(map[int64][]NormalizedPoint)
	for _, p := range points {
		if p.Timestamp.Before(from) || !p.Timestamp.Before(to) {
			continue
		}
		day := e.truncate(p.Timestamp, GranularityDay)
		byDay[day.Unix()] = append(byDay[day.Unix()], p)
	}

	var out []DailyTotal
	for day := e.truncate(from, GranularityDay); day.Before(to); day = day.AddDate(0, 0, 1) {
		out = append(out, DailyTotal{
			Date:           day,
			TotalGenerated: e.ReconstructDay(byDay[day.Unix()], metric),
		})
	}
	return out
}
