// v1
// internal/analytics/types.go
package analytics

import (
	"fmt"
	"strings"
	"time"
)

// Category identifies the waste stream a reading belongs to. The set is
// closed; anything else coming off the wire is rejected at the ingest or
// API boundary, never inside the pipeline.
type Category string

const (
	CategoryOrganic   Category = "organic"
	CategoryInorganic Category = "inorganic"
	CategoryResidue   Category = "residue"
)

// Categories lists the known waste streams in display order.
func Categories() []Category {
	return []Category{CategoryOrganic, CategoryInorganic, CategoryResidue}
}

// ParseCategory resolves a case-insensitive category name.
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryOrganic:
		return CategoryOrganic, nil
	case CategoryInorganic:
		return CategoryInorganic, nil
	case CategoryResidue:
		return CategoryResidue, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Metric selects which measurement a series is built from.
type Metric int

const (
	MetricWeight Metric = iota
	MetricVolume
)

// ParseMetric resolves a case-insensitive metric name.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weight":
		return MetricWeight, nil
	case "volume":
		return MetricVolume, nil
	}
	return 0, fmt.Errorf("unknown metric %q", s)
}

func (m Metric) String() string {
	if m == MetricVolume {
		return "volume"
	}
	return "weight"
}

// Granularity is the fixed bucket width used to align irregular readings
// onto a regular chart axis.
type Granularity int

const (
	GranularityMinute Granularity = iota
	GranularityFifteenMinutes
	GranularityHour
	GranularityDay
)

// ParseGranularity resolves a case-insensitive granularity name.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minute", "1m":
		return GranularityMinute, nil
	case "15m", "fifteenminutes", "quarter":
		return GranularityFifteenMinutes, nil
	case "hour", "1h":
		return GranularityHour, nil
	case "day", "1d":
		return GranularityDay, nil
	}
	return 0, fmt.Errorf("unknown granularity %q", s)
}

func (g Granularity) String() string {
	switch g {
	case GranularityMinute:
		return "minute"
	case GranularityFifteenMinutes:
		return "15m"
	case GranularityHour:
		return "hour"
	case GranularityDay:
		return "day"
	}
	return "unknown"
}

// RawReading is one row as supplied by the ingest layer. The engine never
// mutates it; IDs are monotonically increasing upstream and break timestamp
// ties deterministically.
type RawReading struct {
	ID        int64      `json:"id"`
	BinID     string     `json:"binId"`
	Timestamp time.Time  `json:"timestamp"`
	Category  Category   `json:"category"`
	Distances [4]float64 `json:"distances"`
	Weight    float64    `json:"weight"`
}

// NormalizedPoint is the cleaned form of a single reading: a fill
// percentage clamped to [0,100] and a weight with NaN/Inf already
// replaced by zero.
type NormalizedPoint struct {
	ID             int64     `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Category       Category  `json:"category"`
	FillPercentage float64   `json:"fillPercentage"`
	Weight         float64   `json:"weight"`
}

// MetricValue returns the measurement selected by metric.
func (p NormalizedPoint) MetricValue(m Metric) float64 {
	if m == MetricVolume {
		return p.FillPercentage
	}
	return p.Weight
}

// NoDataMarker is emitted as the full timestamp of buckets no reading
// fell into, so charts can render the gap as data instead of omitting
// the slot.
const NoDataMarker = "(No data)"

// BucketedPoint is one chart-ready slot of a dense series.
type BucketedPoint struct {
	BucketStart   time.Time `json:"bucketStart"`
	Label         string    `json:"label"`
	FullTimestamp string    `json:"fullTimestamp"`
	Value         float64   `json:"value"`
}

// DailyTotal carries the reconstructed waste generated during one
// calendar day of the display timezone.
type DailyTotal struct {
	Date           time.Time `json:"date"`
	TotalGenerated float64   `json:"totalGenerated"`
}
