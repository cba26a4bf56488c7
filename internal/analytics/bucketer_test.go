// v2
// internal/analytics/bucketer_test.go
package analytics

import (
	"testing"
	"time"
)

func np(id int64, ts time.Time, fill, weight float64) NormalizedPoint {
	return NormalizedPoint{ID: id, Timestamp: ts, Category: CategoryOrganic, FillPercentage: fill, Weight: weight}
}

func TestBucketDensityOneHourMinutes(t *testing.T) {
	e := testEngine(t)
	from := time.Date(2026, 8, 20, 10, 0, 0, 0, e.Location())
	to := from.Add(time.Hour)

	points := []NormalizedPoint{
		np(1, from.Add(3*time.Minute+12*time.Second), 10, 1),
		np(2, from.Add(27*time.Minute), 20, 2),
		np(3, from.Add(51*time.Minute+40*time.Second), 30, 3),
	}

	out := e.Bucket(points, MetricVolume, from, to, GranularityMinute)
	if len(out) != 60 {
		t.Fatalf("expected 60 dense buckets, got %d", len(out))
	}

	zeros := 0
	for _, bp := range out {
		if bp.FullTimestamp == NoDataMarker {
			if bp.Value != 0 {
				t.Fatalf("empty bucket %s carries value %v", bp.Label, bp.Value)
			}
			zeros++
		}
	}
	if zeros != 57 {
		t.Fatalf("expected 57 empty buckets, got %d", zeros)
	}

	if out[3].Value != 10 || out[27].Value != 20 || out[51].Value != 30 {
		t.Fatalf("readings landed in wrong slots: %v %v %v", out[3].Value, out[27].Value, out[51].Value)
	}
	if out[0].Label != "10:00" || out[59].Label != "10:59" {
		t.Fatalf("unexpected labels: first=%q last=%q", out[0].Label, out[59].Label)
	}
}

func TestBucketDayAtFifteenMinutesIs96Slots(t *testing.T) {
	e := testEngine(t)
	from := time.Date(2026, 8, 20, 0, 0, 0, 0, e.Location())
	out := e.Bucket(nil, MetricWeight, from, from.AddDate(0, 0, 1), GranularityFifteenMinutes)
	if len(out) != 96 {
		t.Fatalf("expected 96 slots for a day of 15-minute buckets, got %d", len(out))
	}
}

func TestBucketLastValueWins(t *testing.T) {
	e := testEngine(t)
	from := time.Date(2026, 8, 20, 14, 0, 0, 0, e.Location())
	to := from.Add(30 * time.Minute)

	points := []NormalizedPoint{
		np(10, from.Add(16*time.Minute), 40, 4),
		np(11, from.Add(22*time.Minute), 70, 7),
	}

	out := e.Bucket(points, MetricVolume, from, to, GranularityFifteenMinutes)
	if len(out) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(out))
	}
	if out[1].Value != 70 {
		t.Fatalf("bucket must hold the later reading's value, got %v", out[1].Value)
	}
	if out[1].Label != "14:15" {
		t.Fatalf("unexpected bucket label %q", out[1].Label)
	}
}

func TestBucketTimestampTieHighestIDWins(t *testing.T) {
	e := testEngine(t)
	from := time.Date(2026, 8, 20, 9, 0, 0, 0, e.Location())
	ts := from.Add(5 * time.Minute)

	points := []NormalizedPoint{
		np(7, ts, 33, 0),
		np(9, ts, 55, 0),
		np(8, ts, 44, 0),
	}

	out := e.Bucket(points, MetricVolume, from, from.Add(15*time.Minute), GranularityFifteenMinutes)
	if len(out) != 1 {
		t.Fatalf("expected a single bucket, got %d", len(out))
	}
	if out[0].Value != 55 {
		t.Fatalf("tie must resolve to the highest reading ID, got value %v", out[0].Value)
	}
}

func TestBucketRangeIsEndExclusive(t *testing.T) {
	e := testEngine(t)
	from := time.Date(2026, 8, 20, 10, 0, 0, 0, e.Location())
	to := from.Add(10 * time.Minute)

	// A reading exactly at the end of the range belongs to the next
	// window, not this one.
	points := []NormalizedPoint{np(1, to, 90, 9)}

	out := e.Bucket(points, MetricVolume, from, to, GranularityFifteenMinutes)
	if len(out) != 1 {
		t.Fatalf("expected a single partial slot, got %d", len(out))
	}
	if out[0].FullTimestamp != NoDataMarker || out[0].Value != 0 {
		t.Fatalf("end-of-range reading leaked into the window: %+v", out[0])
	}
}

func TestBucketDayBoundaryFollowsDisplayTimezone(t *testing.T) {
	e := testEngine(t)
	// 17:30 UTC is 00:30 of the next day at UTC+7.
	reading := np(1, time.Date(2026, 8, 20, 17, 30, 0, 0, time.UTC), 62, 6.2)

	from := time.Date(2026, 8, 20, 0, 0, 0, 0, e.Location())
	out := e.Bucket([]NormalizedPoint{reading}, MetricVolume, from, from.AddDate(0, 0, 2), GranularityDay)
	if len(out) != 2 {
		t.Fatalf("expected 2 day buckets, got %d", len(out))
	}
	if out[0].Value != 0 {
		t.Fatalf("reading counted on the wrong side of the local midnight: %+v", out[0])
	}
	if out[1].Value != 62 {
		t.Fatalf("reading missing from its local day: %+v", out[1])
	}
	if out[1].Label != "2026-08-21" {
		t.Fatalf("unexpected day label %q", out[1].Label)
	}
}

func TestBucketReversedRangeYieldsNothing(t *testing.T) {
	e := testEngine(t)
	from := time.Date(2026, 8, 20, 10, 0, 0, 0, e.Location())
	if out := e.Bucket(nil, MetricVolume, from, from.Add(-time.Hour), GranularityMinute); out != nil {
		t.Fatalf("reversed range must produce an empty sequence, got %d buckets", len(out))
	}
}

func TestBucketWeightMetricSelectsWeight(t *testing.T) {
	e := testEngine(t)
	from := time.Date(2026, 8, 20, 10, 0, 0, 0, e.Location())
	points := []NormalizedPoint{np(1, from.Add(time.Minute), 80, 3.5)}

	out := e.Bucket(points, MetricWeight, from, from.Add(time.Hour), GranularityHour)
	if len(out) != 1 {
		t.Fatalf("expected one hour bucket, got %d", len(out))
	}
	if out[0].Value != 3.5 {
		t.Fatalf("weight metric must surface the weight, got %v", out[0].Value)
	}
	if out[0].Label != "10:00" {
		t.Fatalf("unexpected hour label %q", out[0].Label)
	}
}
