// v2
// internal/ingest/consumer.go
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"wastwatcher/dashboard/internal/analytics"
	"wastwatcher/dashboard/internal/circuitbreaker"
	"wastwatcher/dashboard/internal/observability"
)

// ConsumerConfig captures the runtime tunables required to consume the
// readings stream. All fields must be populated by the caller.
type ConsumerConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	PollTimeout time.Duration
}

// kafkaMessageFetcher captures the read capability shared by the raw
// Kafka reader and the circuit breaker wrapper.
type kafkaMessageFetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
}

// Consumer streams raw bin readings from Kafka into the store.
type Consumer struct {
	cfg     ConsumerConfig
	reader  *kafka.Reader
	fetcher kafkaMessageFetcher
	store   *Store
	metrics *observability.Metrics
	log     *slog.Logger
	poll    time.Duration
}

// NewConsumer builds a Kafka reader wrapped by the shared circuit
// breaker and attaches it to the supplied store.
func NewConsumer(cfg ConsumerConfig, store *Store, metrics *observability.Metrics, log *slog.Logger) (*Consumer, error) {
	if log == nil {
		return nil, errors.New("logger must not be nil")
	}
	if store == nil {
		return nil, errors.New("store must not be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("readings topic must not be empty")
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		return nil, errors.New("consumer group must not be empty")
	}

	poll := cfg.PollTimeout
	if poll <= 0 {
		poll = 5 * time.Second
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})

	breaker, err := circuitbreaker.NewKafkaBreakerFromEnv("dashboard-readings-consumer", log, nil)
	if err != nil {
		log.Error("readings_consumer_cb_init_failed", slog.Any("err", err))
	}
	var fetcher kafkaMessageFetcher = reader
	if breaker != nil {
		wrapped := circuitbreaker.NewCBKafkaReader(reader, breaker)
		if breaker.Enabled() {
			log.Info("readings_consumer_cb_enabled", slog.String("name", "dashboard-readings-consumer"))
		} else {
			log.Info("readings_consumer_cb_disabled", slog.String("name", "dashboard-readings-consumer"))
		}
		fetcher = wrapped
	}

	return &Consumer{cfg: cfg, reader: reader, fetcher: fetcher, store: store, metrics: metrics, log: log, poll: poll}, nil
}

// Close shuts down the underlying Kafka reader.
func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Run blocks until the context is cancelled or the reader is closed,
// consuming messages and updating the in-memory buffers. Malformed
// messages are counted and skipped; a bad reading must never stop the
// stream.
func (c *Consumer) Run(ctx context.Context) error {
	if c == nil {
		return errors.New("nil consumer")
	}
	if ctx == nil {
		return errors.New("context must not be nil")
	}

	c.log.Info("readings_consumer_started",
		slog.String("topic", c.cfg.Topic),
		slog.String("group", c.cfg.GroupID),
		slog.String("brokers", strings.Join(c.cfg.Brokers, ",")),
		slog.Duration("pollTimeout", c.poll),
	)
	defer c.log.Info("readings_consumer_stopped")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		fetchCtx, cancel := context.WithTimeout(ctx, c.poll)
		msg, err := c.fetcher.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			if errors.Is(err, context.Canceled) {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				continue
			}
			if errors.Is(err, io.ErrClosedPipe) || errors.Is(err, kafka.ErrGroupClosed) {
				return nil
			}
			c.log.Error("readings_consumer_fetch_error", slog.Any("err", err))
			continue
		}

		reading, decodeErr := decodeReading(msg.Value)
		if decodeErr != nil {
			c.log.Warn("readings_consumer_decode_error", slog.Any("err", decodeErr), slog.Int64("offset", msg.Offset))
			if c.metrics != nil {
				c.metrics.IngestDecodeError()
			}
		} else {
			count, evicted := c.store.Append(reading)
			if c.metrics != nil {
				c.metrics.ReadingIngested("kafka")
			}
			c.log.Info("reading_buffered",
				slog.String("binId", reading.BinID),
				slog.String("category", string(reading.Category)),
				slog.Time("timestamp", reading.Timestamp.UTC()),
				slog.Int("bufferDepth", count),
				slog.Bool("evicted", evicted != nil),
			)
		}

		commitCtx, commitCancel := context.WithTimeout(ctx, c.poll)
		if err := c.reader.CommitMessages(commitCtx, msg); err != nil {
			if !(errors.Is(err, context.Canceled) && ctx.Err() != nil) {
				c.log.Error("readings_consumer_commit_error", slog.Any("err", err))
			}
		}
		commitCancel()
	}
}

// readingEnvelope mirrors the wire document while tolerating the loose
// typing the field gateways produce: numbers may arrive as strings and
// extra fields are ignored.
type readingEnvelope struct {
	ID        json.RawMessage   `json:"id"`
	BinID     string            `json:"binId"`
	Timestamp json.RawMessage   `json:"timestamp"`
	Category  string            `json:"category"`
	Distances []json.RawMessage `json:"distances"`
	Weight    json.RawMessage   `json:"weight"`
}

// decodeReading extracts a RawReading from a message payload. Structural
// problems (missing bin, unknown category, unusable timestamp) are
// errors; merely dirty numerics degrade to values the normalizer already
// knows how to absorb.
func decodeReading(raw []byte) (analytics.RawReading, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var env readingEnvelope
	if err := dec.Decode(&env); err != nil {
		return analytics.RawReading{}, fmt.Errorf("decode reading payload: %w", err)
	}

	if strings.TrimSpace(env.BinID) == "" {
		return analytics.RawReading{}, errors.New("binId missing or empty")
	}
	category, err := analytics.ParseCategory(env.Category)
	if err != nil {
		return analytics.RawReading{}, err
	}
	ts, err := parseTimestamp(env.Timestamp)
	if err != nil {
		return analytics.RawReading{}, err
	}

	reading := analytics.RawReading{
		ID:        parseID(env.ID),
		BinID:     strings.TrimSpace(env.BinID),
		Timestamp: ts,
		Category:  category,
		Weight:    parseLooseNumber(env.Weight),
	}

	// Fewer than four distances means the missing sensors never
	// reported; NaN marks them invalid so they are excluded from the
	// average rather than read as "distance zero" (= full bin).
	for i := range reading.Distances {
		if i < len(env.Distances) {
			reading.Distances[i] = parseLooseNumber(env.Distances[i])
		} else {
			reading.Distances[i] = math.NaN()
		}
	}

	return reading, nil
}

// parseTimestamp accepts RFC3339/RFC3339Nano strings as well as Unix
// epoch milliseconds given as string or numeric JSON values.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 {
		return time.Time{}, errors.New("timestamp field missing")
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		trimmed := strings.TrimSpace(asString)
		if trimmed == "" {
			return time.Time{}, errors.New("timestamp string empty")
		}
		if t, err := time.Parse(time.RFC3339Nano, trimmed); err == nil {
			return t, nil
		}
		if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
			return t, nil
		}
		if ms, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), nil
		}
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", trimmed)
	}

	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		if ms, err := asNumber.Int64(); err == nil {
			return time.UnixMilli(ms).UTC(), nil
		}
	}
	return time.Time{}, errors.New("timestamp neither string nor integer")
}

// parseID reads the reading ID, returning zero (store-assigned) when the
// field is absent or unusable.
func parseID(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		if id, err := asNumber.Int64(); err == nil && id > 0 {
			return id
		}
		return 0
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if id, err := strconv.ParseInt(strings.TrimSpace(asString), 10, 64); err == nil && id > 0 {
			return id
		}
	}
	return 0
}

// parseLooseNumber converts a JSON value that should be numeric but may
// be a quoted string. Unusable values become NaN, which downstream
// normalization treats as invalid input.
func parseLooseNumber(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return math.NaN()
	}
	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		if f, err := asNumber.Float64(); err == nil {
			return f
		}
		return math.NaN()
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(asString), 64); err == nil {
			return f
		}
	}
	return math.NaN()
}
