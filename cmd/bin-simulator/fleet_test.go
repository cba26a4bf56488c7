// v1
// cmd/bin-simulator/fleet_test.go

package main

import (
	"testing"
	"time"
)

func testConfig() SimConfig {
	return SimConfig{
		Transport:        "kafka",
		BinCount:         2,
		PublishInterval:  time.Second,
		BinHeightCm:      60,
		FaultProbability: 0,
		PickupEvery:      6 * time.Hour,
	}
}

func TestFleetEmitsOneReadingPerCompartment(t *testing.T) {
	fleet := NewFleet(testConfig(), 1)
	readings := fleet.Tick(time.Now())
	if len(readings) != 2*len(categories) {
		t.Fatalf("expected %d readings, got %d", 2*len(categories), len(readings))
	}
	seen := map[int64]bool{}
	for _, r := range readings {
		if seen[r.ID] {
			t.Fatalf("duplicate reading ID %d", r.ID)
		}
		seen[r.ID] = true
		if r.BinID == "" {
			t.Fatalf("reading missing bin ID: %+v", r)
		}
	}
}

func TestFleetDistancesStayWithinGeometry(t *testing.T) {
	fleet := NewFleet(testConfig(), 7)
	now := time.Now()
	for i := 0; i < 200; i++ {
		now = now.Add(time.Minute)
		for _, r := range fleet.Tick(now) {
			for _, d := range r.Distances {
				if d < 0 {
					t.Fatalf("negative distance %v", d)
				}
				if d > 62 { // height + jitter headroom
					t.Fatalf("distance %v beyond bin geometry", d)
				}
			}
			if r.Weight < 0 {
				t.Fatalf("negative weight %v", r.Weight)
			}
		}
	}
}

func TestFleetPickupEmptiesCompartment(t *testing.T) {
	cfg := testConfig()
	cfg.PickupEvery = 10 * time.Minute
	fleet := NewFleet(cfg, 11)

	start := time.Now()
	fleet.Tick(start)
	for i := 1; i <= 9; i++ {
		fleet.Tick(start.Add(time.Duration(i) * time.Minute))
	}

	readings := fleet.Tick(start.Add(10 * time.Minute))
	for _, r := range readings {
		if r.Weight != 0 {
			t.Fatalf("expected pickup to zero the weight, got %v", r.Weight)
		}
	}
}

func TestFleetInjectsFaultSentinel(t *testing.T) {
	cfg := testConfig()
	cfg.FaultProbability = 1
	fleet := NewFleet(cfg, 3)

	for _, r := range fleet.Tick(time.Now()) {
		for _, d := range r.Distances {
			if d != faultedDistanceCm {
				t.Fatalf("expected every sensor faulted, got %v", d)
			}
		}
	}
}
