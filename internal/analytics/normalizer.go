// v1
// internal/analytics/normalizer.go
package analytics

import "math"

// Normalize converts one raw reading into a normalized point. The four
// distances are averaged over the valid sensors only — a faulted sensor
// reports a large sentinel value and excluding it from both the sum and
// the count avoids skewing the estimate the way zeroing it would. With no
// valid sensor at all the fill percentage degrades to zero.
//
// Normalize never fails: a live monitoring stream must not stop because
// one reading is garbage, so invalid input degrades to the safest numeric
// default instead of surfacing an error.
func (e *Engine) Normalize(r RawReading) NormalizedPoint {
	var sum float64
	valid := 0
	for _, d := range r.Distances {
		if !e.validDistance(d) {
			continue
		}
		sum += d
		valid++
	}

	fill := 0.0
	if valid > 0 {
		avg := sum / float64(valid)
		fill = clampPercent((e.binHeight - avg) / e.binHeight * 100)
	}

	weight := r.Weight
	if math.IsNaN(weight) || math.IsInf(weight, 0) {
		weight = 0
	}

	return NormalizedPoint{
		ID:             r.ID,
		Timestamp:      r.Timestamp,
		Category:       r.Category,
		FillPercentage: fill,
		Weight:         weight,
	}
}

// NormalizeAll maps Normalize over a snapshot, preserving order.
func (e *Engine) NormalizeAll(readings []RawReading) []NormalizedPoint {
	if len(readings) == 0 {
		return nil
	}
	out := make([]NormalizedPoint, 0, len(readings))
	for _, r := range readings {
		out = append(out, e.Normalize(r))
	}
	return out
}

// validDistance reports whether a sensor distance may participate in the
// average: finite, non-negative, and strictly below the error sentinel.
func (e *Engine) validDistance(d float64) bool {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return false
	}
	return d >= 0 && d < e.errorLimit
}

func clampPercent(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
