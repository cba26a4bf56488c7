// v1
// internal/ingest/store.go

// Package ingest receives raw bin readings from the configured transport
// and buffers them in memory for the analytics engine. The dashboard
// recomputes every series from a snapshot, so the store only needs to
// hand out defensive copies of bounded per-series buffers.
package ingest

import (
	"sync"
	"time"

	"wastwatcher/dashboard/internal/analytics"
)

type seriesKey struct {
	bin      string
	category analytics.Category
}

// Store keeps the most recent readings per bin and category in bounded
// append-only buffers. It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	maxPerKey int
	series    map[seriesKey][]analytics.RawReading
	bins      []string
	seen      map[string]struct{}
	lastID    int64
}

// NewStore initializes a bounded store. Capacities of zero or less are
// promoted to five thousand readings per bin and category.
func NewStore(max int) *Store {
	if max <= 0 {
		max = 5000
	}
	return &Store{
		maxPerKey: max,
		series:    make(map[seriesKey][]analytics.RawReading),
		seen:      make(map[string]struct{}),
	}
}

// Append registers a reading, evicting the oldest buffered one when the
// series is full. Readings arriving without an ID are assigned the next
// monotonic one so the bucketer's tie-break stays deterministic. The
// returned count is the series depth after the append; the evicted
// reading, if any, is returned for logging.
func (s *Store) Append(r analytics.RawReading) (count int, evicted *analytics.RawReading) {
	if r.BinID == "" {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == 0 {
		s.lastID++
		r.ID = s.lastID
	} else if r.ID > s.lastID {
		s.lastID = r.ID
	}

	if _, ok := s.seen[r.BinID]; !ok {
		s.seen[r.BinID] = struct{}{}
		s.bins = append(s.bins, r.BinID)
	}

	key := seriesKey{bin: r.BinID, category: r.Category}
	buf := s.series[key]
	if len(buf) >= s.maxPerKey {
		removed := buf[0]
		buf = append(buf[1:], r)
		s.series[key] = buf
		return len(buf), &removed
	}
	buf = append(buf, r)
	s.series[key] = buf
	return len(buf), nil
}

// Snapshot clones the buffered readings for a bin and category. The
// caller owns the returned slice.
func (s *Store) Snapshot(bin string, category analytics.Category) []analytics.RawReading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	buf := s.series[seriesKey{bin: bin, category: category}]
	if len(buf) == 0 {
		return nil
	}
	out := make([]analytics.RawReading, len(buf))
	copy(out, buf)
	return out
}

// SnapshotRange clones the readings for a bin and category whose
// timestamps fall within [from, to).
func (s *Store) SnapshotRange(bin string, category analytics.Category, from, to time.Time) []analytics.RawReading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	buf := s.series[seriesKey{bin: bin, category: category}]
	var out []analytics.RawReading
	for _, r := range buf {
		if r.Timestamp.Before(from) || !r.Timestamp.Before(to) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Latest returns the most recent reading for a bin and category, by
// timestamp with the reading ID as tie-break. Arrival order is not
// trusted because transports may replay or reorder.
func (s *Store) Latest(bin string, category analytics.Category) (analytics.RawReading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	buf := s.series[seriesKey{bin: bin, category: category}]
	if len(buf) == 0 {
		return analytics.RawReading{}, false
	}
	best := buf[0]
	for _, r := range buf[1:] {
		if r.Timestamp.After(best.Timestamp) ||
			(r.Timestamp.Equal(best.Timestamp) && r.ID > best.ID) {
			best = r
		}
	}
	return best, true
}

// Bins returns the known bin IDs in first-seen order.
func (s *Store) Bins() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.bins))
	copy(out, s.bins)
	return out
}
