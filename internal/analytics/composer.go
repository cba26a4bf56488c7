// v1
// internal/analytics/composer.go
package analytics

import "sort"

// Compose merges two category series into a single "total" series,
// matching buckets by their start instant. Weights from independent
// compartments add to a physical total; fill percentages are per-bin
// ratios, so they are averaged instead, which keeps the combined
// indicator inside [0,100] as the display contract requires. A bucket
// missing on either side contributes zero before combination.
//
// Both inputs normally come from Bucket over the same range and are
// already dense and chronological; the merge still tolerates ragged
// inputs and emits the union of slots in ascending order.
func (e *Engine) Compose(a, b []BucketedPoint, metric Metric) []BucketedPoint {
	type pair struct {
		a, b *BucketedPoint
	}
	merged := make(map[int64]*pair, len(a))
	for i := range a {
		merged[a[i].BucketStart.Unix()] = &pair{a: &a[i]}
	}
	for i := range b {
		p, ok := merged[b[i].BucketStart.Unix()]
		if !ok {
			merged[b[i].BucketStart.Unix()] = &pair{b: &b[i]}
			continue
		}
		p.b = &b[i]
	}

	keys := make([]int64, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]BucketedPoint, 0, len(keys))
	for _, k := range keys {
		p := merged[k]
		base := p.a
		if base == nil {
			base = p.b
		}

		var va, vb float64
		full := NoDataMarker
		if p.a != nil {
			va = p.a.Value
			if p.a.FullTimestamp != NoDataMarker {
				full = p.a.FullTimestamp
			}
		}
		if p.b != nil {
			vb = p.b.Value
			if full == NoDataMarker && p.b.FullTimestamp != NoDataMarker {
				full = p.b.FullTimestamp
			}
		}

		combined := va + vb
		if metric == MetricVolume {
			combined = (va + vb) / 2
		}

		out = append(out, BucketedPoint{
			BucketStart:   base.BucketStart,
			Label:         base.Label,
			FullTimestamp: full,
			Value:         combined,
		})
	}
	return out
}
