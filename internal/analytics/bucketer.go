// v2
// internal/analytics/bucketer.go
package analytics

import "time"

// Bucket aligns normalized points onto a dense, fixed-width time axis.
//
// The range is half-open: [from, to). The half-open convention is applied
// to every bucketing path, so one hour at minute granularity is exactly
// 60 slots and one day at 15-minute granularity is exactly 96 — the
// legacy dashboard mixed <= and < between screens and occasionally grew a
// trailing bucket.
//
// Within a bucket the latest-timestamped point wins; the sensors report
// the current level, not a delta, so the last value is the state "as of"
// that slot and averaging would be wrong. Timestamp ties are broken by
// the higher reading ID.
//
// Every slot of the range is emitted even when no reading fell into it;
// empty slots carry a zero value and the NoDataMarker so chart axes keep
// their positional alignment between periods.
func (e *Engine) Bucket(points []NormalizedPoint, metric Metric, from, to time.Time, g Granularity) []BucketedPoint {
	if !from.Before(to) {
		return nil
	}

	winners := make(map[int64]NormalizedPoint)
	for _, p := range points {
		if p.Timestamp.Before(from) || !p.Timestamp.Before(to) {
			continue
		}
		key := e.truncate(p.Timestamp, g).Unix()
		cur, ok := winners[key]
		if !ok || laterReading(p, cur) {
			winners[key] = p
		}
	}

	var out []BucketedPoint
	for slot := e.truncate(from, g); slot.Before(to); slot = e.advance(slot, g) {
		bp := BucketedPoint{
			BucketStart:   slot,
			Label:         e.label(slot, g),
			FullTimestamp: NoDataMarker,
		}
		if p, ok := winners[slot.Unix()]; ok {
			bp.Value = p.MetricValue(metric)
			bp.FullTimestamp = p.Timestamp.In(e.loc).Format("2006-01-02 15:04:05")
		}
		out = append(out, bp)
	}
	return out
}

// laterReading reports whether a should replace b as the bucket winner.
func laterReading(a, b NormalizedPoint) bool {
	if a.Timestamp.After(b.Timestamp) {
		return true
	}
	if a.Timestamp.Equal(b.Timestamp) {
		return a.ID > b.ID
	}
	return false
}

// truncate floors an instant to its bucket start on the display-timezone
// wall clock. time.Time.Truncate operates on absolute durations since the
// epoch, which misplaces day boundaries for non-UTC offsets, so bucket
// starts are rebuilt from wall-clock fields instead.
func (e *Engine) truncate(t time.Time, g Granularity) time.Time {
	w := t.In(e.loc)
	switch g {
	case GranularityMinute:
		return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), 0, 0, e.loc)
	case GranularityFifteenMinutes:
		return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute()-w.Minute()%15, 0, 0, e.loc)
	case GranularityHour:
		return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), 0, 0, 0, e.loc)
	default:
		return time.Date(w.Year(), w.Month(), w.Day(), 0, 0, 0, 0, e.loc)
	}
}

func (e *Engine) advance(t time.Time, g Granularity) time.Time {
	switch g {
	case GranularityMinute:
		return t.Add(time.Minute)
	case GranularityFifteenMinutes:
		return t.Add(15 * time.Minute)
	case GranularityHour:
		return t.Add(time.Hour)
	default:
		return t.AddDate(0, 0, 1)
	}
}

func (e *Engine) label(t time.Time, g Granularity) string {
	if g == GranularityDay {
		return t.In(e.loc).Format("2006-01-02")
	}
	return t.In(e.loc).Format("15:04")
}
