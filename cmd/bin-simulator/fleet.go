// v1
// cmd/bin-simulator/fleet.go

package main

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// faultedDistanceCm is the sentinel an ultrasonic sensor reports when it
// cannot get an echo; the dashboard excludes such readings from the
// fill average.
const faultedDistanceCm = 2500.0

var categories = []string{"organic", "inorganic", "residue"}

// compartment tracks one waste stream inside one bin: the material
// level in centimeters and the accumulated weight in kilograms.
type compartment struct {
	levelCm    float64
	weightKg   float64
	lastPickup time.Time
}

// binState is one simulated smart bin with a compartment per category.
type binState struct {
	id           string
	compartments map[string]*compartment
}

// Fleet generates plausible reading streams for a set of bins: levels
// ramp up with random increments, pickups empty a compartment on a
// schedule, and sensors occasionally fault to the sentinel distance.
type Fleet struct {
	mu     sync.Mutex
	cfg    SimConfig
	rng    *rand.Rand
	bins   []*binState
	nextID int64
}

// NewFleet seeds the fleet. A fixed seed makes test runs reproducible;
// production compose files pass time-based seeds.
func NewFleet(cfg SimConfig, seed int64) *Fleet {
	rng := rand.New(rand.NewSource(seed))
	f := &Fleet{cfg: cfg, rng: rng}
	for i := 0; i < cfg.BinCount; i++ {
		b := &binState{
			id:           "bin-" + uuid.NewString()[:8],
			compartments: make(map[string]*compartment, len(categories)),
		}
		for _, c := range categories {
			b.compartments[c] = &compartment{}
		}
		f.bins = append(f.bins, b)
	}
	return f
}

// BinIDs lists the generated bin identifiers.
func (f *Fleet) BinIDs() []string {
	out := make([]string, 0, len(f.bins))
	for _, b := range f.bins {
		out = append(out, b.id)
	}
	return out
}

// simReading mirrors the wire document the dashboard ingests.
type simReading struct {
	ID        int64      `json:"id"`
	BinID     string     `json:"binId"`
	Timestamp time.Time  `json:"timestamp"`
	Category  string     `json:"category"`
	Distances [4]float64 `json:"distances"`
	Weight    float64    `json:"weight"`
}

// Tick advances every compartment by one step and returns the readings
// to publish for this instant.
func (f *Fleet) Tick(now time.Time) []simReading {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []simReading
	for _, b := range f.bins {
		for _, cat := range categories {
			comp := b.compartments[cat]
			f.advance(comp, now)
			f.nextID++
			out = append(out, simReading{
				ID:        f.nextID,
				BinID:     b.id,
				Timestamp: now.UTC(),
				Category:  cat,
				Distances: f.distances(comp),
				Weight:    comp.weightKg,
			})
		}
	}
	return out
}

func (f *Fleet) advance(c *compartment, now time.Time) {
	if c.lastPickup.IsZero() {
		c.lastPickup = now
	}
	if now.Sub(c.lastPickup) >= f.cfg.PickupEvery || c.levelCm >= f.cfg.BinHeightCm {
		c.levelCm = 0
		c.weightKg = 0
		c.lastPickup = now
		return
	}
	// Deposits arrive in bursts; most ticks nothing happens.
	if f.rng.Float64() < 0.4 {
		c.levelCm += f.rng.Float64() * 3
		if c.levelCm > f.cfg.BinHeightCm {
			c.levelCm = f.cfg.BinHeightCm
		}
		c.weightKg += f.rng.Float64() * 0.3
	}
}

// distances renders the four ultrasonic sensors for a compartment:
// distance to the surface with per-sensor jitter, occasionally replaced
// by the fault sentinel.
func (f *Fleet) distances(c *compartment) [4]float64 {
	depth := f.cfg.BinHeightCm - c.levelCm
	var out [4]float64
	for i := range out {
		if f.rng.Float64() < f.cfg.FaultProbability {
			out[i] = faultedDistanceCm
			continue
		}
		jitter := (f.rng.Float64() - 0.5) * 2 // ±1cm
		d := depth + jitter
		if d < 0 {
			d = 0
		}
		out[i] = d
	}
	return out
}
