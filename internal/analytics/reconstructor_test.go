// v1
// internal/analytics/reconstructor_test.go
package analytics

import (
	"testing"
	"time"
)

func weightSeries(e *Engine, start time.Time, values ...float64) []NormalizedPoint {
	points := make([]NormalizedPoint, 0, len(values))
	for i, v := range values {
		points = append(points, NormalizedPoint{
			ID:        int64(i + 1),
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Category:  CategoryOrganic,
			Weight:    v,
		})
	}
	return points
}

func TestReconstructDayPickupDetection(t *testing.T) {
	e := testEngine(t)
	start := time.Date(2026, 8, 20, 6, 0, 0, 0, e.Location())

	// The 15 -> 2 drop exceeds the 0.5 threshold: the bin was emptied and
	// the post-pickup level counts as fresh waste.
	total := e.ReconstructDay(weightSeries(e, start, 10, 12, 15, 2, 6), MetricWeight)
	if !almostEqual(total, 11) {
		t.Fatalf("total = %v, want 11", total)
	}
}

func TestReconstructDayFlatAccumulation(t *testing.T) {
	e := testEngine(t)
	start := time.Date(2026, 8, 20, 6, 0, 0, 0, e.Location())

	// No drop beyond the threshold: the total is just last minus first,
	// jitter included.
	total := e.ReconstructDay(weightSeries(e, start, 3, 3.2, 3.1, 4.8, 5.5), MetricWeight)
	if !almostEqual(total, 2.5) {
		t.Fatalf("total = %v, want 2.5", total)
	}
}

func TestReconstructDayInsufficientPoints(t *testing.T) {
	e := testEngine(t)
	start := time.Date(2026, 8, 20, 6, 0, 0, 0, e.Location())

	if total := e.ReconstructDay(nil, MetricWeight); total != 0 {
		t.Fatalf("zero points: got %v, want 0", total)
	}
	if total := e.ReconstructDay(weightSeries(e, start, 42), MetricWeight); total != 0 {
		t.Fatalf("single point: got %v, want 0", total)
	}
}

func TestReconstructDayNeverNegative(t *testing.T) {
	e := testEngine(t)
	start := time.Date(2026, 8, 20, 6, 0, 0, 0, e.Location())

	// Shrinking within the threshold at every step drives the raw sum
	// negative; the result floors at zero.
	total := e.ReconstructDay(weightSeries(e, start, 5, 4.7, 4.4, 4.1), MetricWeight)
	if total != 0 {
		t.Fatalf("total = %v, want 0", total)
	}
}

func TestReconstructDaySortsUnorderedInput(t *testing.T) {
	e := testEngine(t)
	start := time.Date(2026, 8, 20, 6, 0, 0, 0, e.Location())

	points := weightSeries(e, start, 10, 12, 15, 2, 6)
	// Shuffle deterministically.
	points[0], points[3] = points[3], points[0]
	points[1], points[4] = points[4], points[1]

	total := e.ReconstructDay(points, MetricWeight)
	if !almostEqual(total, 11) {
		t.Fatalf("unordered input: total = %v, want 11", total)
	}
}

func TestReconstructDayVolumeUsesOwnThreshold(t *testing.T) {
	e := testEngine(t)
	start := time.Date(2026, 8, 20, 6, 0, 0, 0, e.Location())

	points := []NormalizedPoint{
		{ID: 1, Timestamp: start, FillPercentage: 40},
		{ID: 2, Timestamp: start.Add(time.Hour), FillPercentage: 37}, // within 5pp: noise
		{ID: 3, Timestamp: start.Add(2 * time.Hour), FillPercentage: 60},
		{ID: 4, Timestamp: start.Add(3 * time.Hour), FillPercentage: 8}, // pickup
		{ID: 5, Timestamp: start.Add(4 * time.Hour), FillPercentage: 20},
	}

	// 40->37 noise (-3), 37->60 (+23), 60->8 pickup (+8), 8->20 (+12):
	// cumulative 40+(-3)+23+8+12 = 80, minus first 40 = 40.
	total := e.ReconstructDay(points, MetricVolume)
	if !almostEqual(total, 40) {
		t.Fatalf("total = %v, want 40", total)
	}
}

func TestDailyTotalsDenseRange(t *testing.T) {
	e := testEngine(t)
	from := time.Date(2026, 8, 17, 0, 0, 0, 0, e.Location())
	to := from.AddDate(0, 0, 7)

	// Readings on the third day only.
	day3 := from.AddDate(0, 0, 2).Add(8 * time.Hour)
	points := weightSeries(e, day3, 1, 2.5, 4)

	totals := e.DailyTotals(points, MetricWeight, from, to)
	if len(totals) != 7 {
		t.Fatalf("expected 7 daily totals, got %d", len(totals))
	}
	for i, d := range totals {
		want := 0.0
		if i == 2 {
			want = 3
		}
		if !almostEqual(d.TotalGenerated, want) {
			t.Fatalf("day %d: total = %v, want %v", i, d.TotalGenerated, want)
		}
		if d.TotalGenerated < 0 {
			t.Fatalf("day %d: negative total %v", i, d.TotalGenerated)
		}
	}
	if !totals[0].Date.Equal(from) {
		t.Fatalf("first day = %v, want %v", totals[0].Date, from)
	}
}
