// v1
// internal/ingest/store_test.go
package ingest

import (
	"fmt"
	"testing"
	"time"

	"wastwatcher/dashboard/internal/analytics"
)

func reading(bin string, cat analytics.Category, id int64, ts time.Time) analytics.RawReading {
	return analytics.RawReading{
		ID:        id,
		BinID:     bin,
		Category:  cat,
		Timestamp: ts,
		Distances: [4]float64{30, 30, 30, 30},
		Weight:    1.5,
	}
}

func TestStoreAssignsMonotonicIDs(t *testing.T) {
	s := NewStore(10)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	s.Append(reading("bin-a", analytics.CategoryOrganic, 0, base))
	s.Append(reading("bin-a", analytics.CategoryOrganic, 0, base.Add(time.Minute)))

	buf := s.Snapshot("bin-a", analytics.CategoryOrganic)
	if len(buf) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(buf))
	}
	if buf[0].ID != 1 || buf[1].ID != 2 {
		t.Fatalf("expected assigned IDs 1 and 2, got %d and %d", buf[0].ID, buf[1].ID)
	}
}

func TestStoreAssignedIDsContinueAfterExplicitID(t *testing.T) {
	s := NewStore(10)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	s.Append(reading("bin-a", analytics.CategoryOrganic, 40, base))
	s.Append(reading("bin-a", analytics.CategoryOrganic, 0, base.Add(time.Minute)))

	buf := s.Snapshot("bin-a", analytics.CategoryOrganic)
	if buf[1].ID != 41 {
		t.Fatalf("expected assigned ID 41 after explicit 40, got %d", buf[1].ID)
	}
}

func TestStoreEvictsOldestWhenFull(t *testing.T) {
	s := NewStore(3)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		count, evicted := s.Append(reading("bin-a", analytics.CategoryInorganic, int64(i+1), base.Add(time.Duration(i)*time.Minute)))
		if evicted != nil {
			t.Fatalf("no eviction expected at depth %d", count)
		}
	}

	count, evicted := s.Append(reading("bin-a", analytics.CategoryInorganic, 4, base.Add(3*time.Minute)))
	if count != 3 {
		t.Fatalf("expected depth to stay at 3, got %d", count)
	}
	if evicted == nil || evicted.ID != 1 {
		t.Fatalf("expected the oldest reading (ID 1) evicted, got %+v", evicted)
	}

	buf := s.Snapshot("bin-a", analytics.CategoryInorganic)
	if buf[0].ID != 2 || buf[2].ID != 4 {
		t.Fatalf("unexpected buffer contents after eviction: %+v", buf)
	}
}

func TestStoreSeparatesCategories(t *testing.T) {
	s := NewStore(10)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	s.Append(reading("bin-a", analytics.CategoryOrganic, 1, base))
	s.Append(reading("bin-a", analytics.CategoryInorganic, 2, base))

	if got := len(s.Snapshot("bin-a", analytics.CategoryOrganic)); got != 1 {
		t.Fatalf("expected 1 organic reading, got %d", got)
	}
	if got := len(s.Snapshot("bin-a", analytics.CategoryInorganic)); got != 1 {
		t.Fatalf("expected 1 inorganic reading, got %d", got)
	}
}

func TestStoreSnapshotRangeIsEndExclusive(t *testing.T) {
	s := NewStore(10)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s.Append(reading("bin-a", analytics.CategoryOrganic, int64(i+1), base.Add(time.Duration(i)*time.Minute)))
	}

	got := s.SnapshotRange("bin-a", analytics.CategoryOrganic, base.Add(time.Minute), base.Add(3*time.Minute))
	if len(got) != 2 {
		t.Fatalf("expected 2 readings in [from, to), got %d", len(got))
	}
	if got[0].ID != 2 || got[1].ID != 3 {
		t.Fatalf("expected IDs 2 and 3, got %d and %d", got[0].ID, got[1].ID)
	}
}

func TestStoreLatestBreaksTiesByID(t *testing.T) {
	s := NewStore(10)
	ts := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	s.Append(reading("bin-a", analytics.CategoryOrganic, 7, ts))
	s.Append(reading("bin-a", analytics.CategoryOrganic, 9, ts))
	s.Append(reading("bin-a", analytics.CategoryOrganic, 8, ts))

	latest, ok := s.Latest("bin-a", analytics.CategoryOrganic)
	if !ok {
		t.Fatalf("expected a latest reading")
	}
	if latest.ID != 9 {
		t.Fatalf("expected highest ID 9 to win the tie, got %d", latest.ID)
	}
}

func TestStoreLatestUnknownBin(t *testing.T) {
	s := NewStore(10)
	if _, ok := s.Latest("nope", analytics.CategoryOrganic); ok {
		t.Fatalf("expected no reading for unknown bin")
	}
}

func TestStoreBinsFirstSeenOrder(t *testing.T) {
	s := NewStore(10)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i, bin := range []string{"bin-c", "bin-a", "bin-b", "bin-a"} {
		s.Append(reading(bin, analytics.CategoryOrganic, int64(i+1), base))
	}

	bins := s.Bins()
	want := []string{"bin-c", "bin-a", "bin-b"}
	if fmt.Sprint(bins) != fmt.Sprint(want) {
		t.Fatalf("expected first-seen order %v, got %v", want, bins)
	}
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	s := NewStore(10)
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	s.Append(reading("bin-a", analytics.CategoryOrganic, 1, base))

	snap := s.Snapshot("bin-a", analytics.CategoryOrganic)
	snap[0].Weight = 999

	again := s.Snapshot("bin-a", analytics.CategoryOrganic)
	if again[0].Weight == 999 {
		t.Fatalf("snapshot must not alias the internal buffer")
	}
}
