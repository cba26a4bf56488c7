// v1
// internal/analytics/engine.go

// Package analytics turns raw multi-sensor bin readings into chart-ready
// series: normalization of the four ultrasonic distances into a fill
// percentage, dense time bucketing in the display timezone, pickup-aware
// reconstruction of daily waste generation, and composition of two
// category series into a total.
//
// Every operation is a pure function of an immutable snapshot; callers
// re-invoke with a fresh snapshot when they need updated results. Bad
// sensor data is absorbed, never surfaced — only misconfiguration fails.
package analytics

import (
	"errors"
	"fmt"
	"time"
)

// Settings holds the per-deployment tuning constants consumed by the
// engine. None of these are hardcoded so field installations with other
// bin geometries or sensor models only change configuration.
type Settings struct {
	// BinHeightCm is the interior height of the bin in centimeters.
	BinHeightCm float64
	// SensorErrorThresholdCm is the sentinel distance at or above which a
	// sensor is considered faulted and excluded from the average.
	SensorErrorThresholdCm float64
	// WeightDropThreshold is the minimum weight decrease between
	// consecutive readings treated as a pickup rather than jitter.
	WeightDropThreshold float64
	// VolumeDropThresholdPct is the pickup threshold for the fill
	// percentage signal, in percentage points.
	VolumeDropThresholdPct float64
	// DisplayTZOffsetMinutes is the fixed wall-clock offset used for
	// bucket labels and day boundaries. The deployment timezone has no
	// DST, so a constant offset is sufficient and an explicit value
	// replaces the inline UTC+7 the legacy dashboard carried around.
	DisplayTZOffsetMinutes int
}

// Engine evaluates the aggregation pipeline with a fixed set of tuning
// constants. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	binHeight  float64
	errorLimit float64
	weightDrop float64
	volumeDrop float64
	loc        *time.Location
}

// NewEngine validates the settings and builds an engine. Invalid
// constants are caller errors and fail fast; a zero bin height would make
// the fill formula meaningless.
func NewEngine(s Settings) (*Engine, error) {
	if s.BinHeightCm <= 0 {
		return nil, fmt.Errorf("bin height must be positive, got %v", s.BinHeightCm)
	}
	if s.SensorErrorThresholdCm <= 0 {
		return nil, fmt.Errorf("sensor error threshold must be positive, got %v", s.SensorErrorThresholdCm)
	}
	if s.WeightDropThreshold < 0 || s.VolumeDropThresholdPct < 0 {
		return nil, errors.New("drop thresholds must not be negative")
	}
	if s.DisplayTZOffsetMinutes < -14*60 || s.DisplayTZOffsetMinutes > 14*60 {
		return nil, fmt.Errorf("display timezone offset out of range: %d minutes", s.DisplayTZOffsetMinutes)
	}

	sign := "+"
	abs := s.DisplayTZOffsetMinutes
	if abs < 0 {
		sign = "-"
		abs = -abs
	}
	name := fmt.Sprintf("UTC%s%02d:%02d", sign, abs/60, abs%60)

	return &Engine{
		binHeight:  s.BinHeightCm,
		errorLimit: s.SensorErrorThresholdCm,
		weightDrop: s.WeightDropThreshold,
		volumeDrop: s.VolumeDropThresholdPct,
		loc:        time.FixedZone(name, s.DisplayTZOffsetMinutes*60),
	}, nil
}

// Location exposes the display timezone so API layers can parse
// wall-clock range parameters consistently with bucket boundaries.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// dropThreshold returns the pickup-detection threshold for the metric.
func (e *Engine) dropThreshold(m Metric) float64 {
	if m == MetricVolume {
		return e.volumeDrop
	}
	return e.weightDrop
}
