// v1
// internal/ingest/consumer_test.go
package ingest

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"wastwatcher/dashboard/internal/analytics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDecodeReadingValidPayload(t *testing.T) {
	payload := []byte(`{
		"id": 42,
		"binId": "bin-7",
		"timestamp": "2026-03-01T08:15:00Z",
		"category": "organic",
		"distances": [30.5, 31.0, 29.5, 30.0],
		"weight": 2.45
	}`)

	r, err := decodeReading(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID != 42 {
		t.Fatalf("expected ID 42, got %d", r.ID)
	}
	if r.BinID != "bin-7" {
		t.Fatalf("expected binId bin-7, got %q", r.BinID)
	}
	if r.Category != analytics.CategoryOrganic {
		t.Fatalf("expected organic category, got %q", r.Category)
	}
	want := time.Date(2026, 3, 1, 8, 15, 0, 0, time.UTC)
	if !r.Timestamp.Equal(want) {
		t.Fatalf("expected timestamp %s, got %s", want, r.Timestamp)
	}
	if r.Distances != [4]float64{30.5, 31.0, 29.5, 30.0} {
		t.Fatalf("unexpected distances: %v", r.Distances)
	}
	if r.Weight != 2.45 {
		t.Fatalf("expected weight 2.45, got %v", r.Weight)
	}
}

func TestDecodeReadingToleratesStringNumerics(t *testing.T) {
	payload := []byte(`{
		"id": "17",
		"binId": "bin-7",
		"timestamp": "2026-03-01T08:15:00+07:00",
		"category": "inorganic",
		"distances": ["30", "31", "bogus", "29"],
		"weight": "1.2"
	}`)

	r, err := decodeReading(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID != 17 {
		t.Fatalf("expected ID 17 from quoted value, got %d", r.ID)
	}
	if r.Weight != 1.2 {
		t.Fatalf("expected weight 1.2 from quoted value, got %v", r.Weight)
	}
	if !math.IsNaN(r.Distances[2]) {
		t.Fatalf("expected unusable distance to decode as NaN, got %v", r.Distances[2])
	}
	if r.Distances[0] != 30 || r.Distances[3] != 29 {
		t.Fatalf("unexpected distances: %v", r.Distances)
	}
}

func TestDecodeReadingUnixMillisTimestamp(t *testing.T) {
	for _, payload := range [][]byte{
		[]byte(`{"binId":"b","timestamp":1772524800000,"category":"residue","distances":[1,2,3,4],"weight":0}`),
		[]byte(`{"binId":"b","timestamp":"1772524800000","category":"residue","distances":[1,2,3,4],"weight":0}`),
	} {
		r, err := decodeReading(payload)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.UnixMilli(1772524800000).UTC()
		if !r.Timestamp.Equal(want) {
			t.Fatalf("expected %s, got %s", want, r.Timestamp)
		}
	}
}

func TestDecodeReadingMissingDistancesBecomeNaN(t *testing.T) {
	payload := []byte(`{"binId":"b","timestamp":"2026-03-01T08:00:00Z","category":"organic","distances":[25,26],"weight":1}`)

	r, err := decodeReading(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsNaN(r.Distances[2]) || !math.IsNaN(r.Distances[3]) {
		t.Fatalf("expected missing sensors to decode as NaN, got %v", r.Distances)
	}
}

func TestDecodeReadingStructuralErrors(t *testing.T) {
	cases := map[string][]byte{
		"missing bin":      []byte(`{"timestamp":"2026-03-01T08:00:00Z","category":"organic","distances":[1,2,3,4],"weight":1}`),
		"blank bin":        []byte(`{"binId":"  ","timestamp":"2026-03-01T08:00:00Z","category":"organic","distances":[1,2,3,4],"weight":1}`),
		"unknown category": []byte(`{"binId":"b","timestamp":"2026-03-01T08:00:00Z","category":"hazardous","distances":[1,2,3,4],"weight":1}`),
		"no timestamp":     []byte(`{"binId":"b","category":"organic","distances":[1,2,3,4],"weight":1}`),
		"bad timestamp":    []byte(`{"binId":"b","timestamp":"yesterday","category":"organic","distances":[1,2,3,4],"weight":1}`),
		"not json":         []byte(`{{{`),
	}
	for name, payload := range cases {
		if _, err := decodeReading(payload); err == nil {
			t.Fatalf("%s: expected decode error", name)
		}
	}
}

func TestDecodeReadingMissingWeightBecomesNaN(t *testing.T) {
	payload := []byte(`{"binId":"b","timestamp":"2026-03-01T08:00:00Z","category":"organic","distances":[1,2,3,4]}`)

	r, err := decodeReading(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsNaN(r.Weight) {
		t.Fatalf("expected absent weight to decode as NaN, got %v", r.Weight)
	}
}

func TestNewConsumerRejectsIncompleteConfig(t *testing.T) {
	store := NewStore(10)
	log := discardLogger()

	cases := map[string]ConsumerConfig{
		"no brokers": {Topic: "t", GroupID: "g"},
		"no topic":   {Brokers: []string{"localhost:9092"}, GroupID: "g"},
		"no group":   {Brokers: []string{"localhost:9092"}, Topic: "t"},
	}
	for name, cfg := range cases {
		if _, err := NewConsumer(cfg, store, nil, log); err == nil {
			t.Fatalf("%s: expected configuration error", name)
		}
	}

	if _, err := NewConsumer(ConsumerConfig{Brokers: []string{"b"}, Topic: "t", GroupID: "g"}, nil, nil, log); err == nil {
		t.Fatalf("expected error for nil store")
	}
	if _, err := NewConsumer(ConsumerConfig{Brokers: []string{"b"}, Topic: "t", GroupID: "g"}, store, nil, nil); err == nil {
		t.Fatalf("expected error for nil logger")
	}
}
