// v1
// internal/config/config.go
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// IngestSource selects which transport feeds the reading buffer.
type IngestSource string

const (
	SourceKafka IngestSource = "kafka"
	SourceMQTT  IngestSource = "mqtt"
)

// Config captures all runtime settings required by the dashboard
// service. Values can be provided by environment variables, a
// properties file, or fall back to sensible defaults so the service can
// boot with minimal setup.
type Config struct {
	// ListenAddress defines the TCP address used by the HTTP server.
	ListenAddress string
	// HTTPReadTimeout bounds the time to read incoming requests.
	HTTPReadTimeout time.Duration
	// HTTPWriteTimeout bounds the time to write responses.
	HTTPWriteTimeout time.Duration
	// ShutdownTimeout limits graceful shutdown attempts.
	ShutdownTimeout time.Duration
	// PropertiesPath records the path used to load property values.
	PropertiesPath string

	// IngestSource selects the transport the bins publish on.
	IngestSource IngestSource
	// KafkaBrokers lists the bootstrap brokers carrying the readings topic.
	KafkaBrokers []string
	// ReadingsTopic identifies the stream of raw bin readings.
	ReadingsTopic string
	// ConsumerGroupID is the consumer group identifier used for checkpointing.
	ConsumerGroupID string
	// PollTimeout bounds the duration spent waiting for Kafka messages.
	PollTimeout time.Duration
	// MaxReadingsPerBin caps the buffered readings per bin and category.
	MaxReadingsPerBin int
	// MQTTBrokerURL is the broker endpoint for the MQTT ingest path.
	MQTTBrokerURL string
	// MQTTTopic is the subscription filter for the MQTT ingest path.
	MQTTTopic string

	// BinHeightCm is the interior height used to turn distances into fill.
	BinHeightCm float64
	// SensorErrorThresholdCm marks distance readings at or above it as faulted.
	SensorErrorThresholdCm float64
	// WeightDropThreshold is the minimum weight decrease treated as a pickup.
	WeightDropThreshold float64
	// VolumeDropThresholdPct is the minimum fill decrease treated as a pickup.
	VolumeDropThresholdPct float64
	// DisplayTZOffsetMinutes fixes the timezone all bucket boundaries use.
	DisplayTZOffsetMinutes int
}

const (
	defaultListenAddress  = ":8090"
	defaultReadTimeout    = 5 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	defaultShutdown       = 5 * time.Second
	defaultPropsPath      = "dashboard.properties"
	defaultIngestSource   = SourceKafka
	defaultKafkaBrokers   = "kafka:9092"
	defaultReadingsTopic  = "wastwatcher.readings"
	defaultConsumerGroup  = "dashboard-readings"
	defaultPollTimeout    = 5 * time.Second
	defaultMaxReadings    = 5000
	defaultMQTTBroker     = "tcp://mosquitto:1883"
	defaultMQTTTopic      = "wastwatcher/readings/#"
	defaultBinHeight      = 60.0
	defaultErrorThreshold = 2000.0
	defaultWeightDrop     = 0.5
	defaultVolumeDrop     = 5.0
	defaultTZOffsetMin    = 420
)

// Load resolves configuration by layering defaults, an optional
// properties file, and finally environment variables. The properties
// file location can be overridden with DASHBOARD_PROPERTIES_PATH.
func Load() (Config, error) {
	cfg := Config{
		ListenAddress:          defaultListenAddress,
		HTTPReadTimeout:        defaultReadTimeout,
		HTTPWriteTimeout:       defaultWriteTimeout,
		ShutdownTimeout:        defaultShutdown,
		IngestSource:           defaultIngestSource,
		KafkaBrokers:           splitAndTrim(defaultKafkaBrokers),
		ReadingsTopic:          defaultReadingsTopic,
		ConsumerGroupID:        defaultConsumerGroup,
		PollTimeout:            defaultPollTimeout,
		MaxReadingsPerBin:      defaultMaxReadings,
		MQTTBrokerURL:          defaultMQTTBroker,
		MQTTTopic:              defaultMQTTTopic,
		BinHeightCm:            defaultBinHeight,
		SensorErrorThresholdCm: defaultErrorThreshold,
		WeightDropThreshold:    defaultWeightDrop,
		VolumeDropThresholdPct: defaultVolumeDrop,
		DisplayTZOffsetMinutes: defaultTZOffsetMin,
	}

	propsPath := strings.TrimSpace(os.Getenv("DASHBOARD_PROPERTIES_PATH"))
	if propsPath == "" {
		propsPath = defaultPropsPath
	}
	cfg.PropertiesPath = propsPath

	if err := applyProperties(&cfg, propsPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch c.IngestSource {
	case SourceKafka, SourceMQTT:
	default:
		return fmt.Errorf("ingest source must be kafka or mqtt, got %q", c.IngestSource)
	}
	if c.BinHeightCm <= 0 {
		return errors.New("bin height must be positive")
	}
	if c.SensorErrorThresholdCm <= 0 {
		return errors.New("sensor error threshold must be positive")
	}
	if c.WeightDropThreshold < 0 || c.VolumeDropThresholdPct < 0 {
		return errors.New("drop thresholds must not be negative")
	}
	if c.DisplayTZOffsetMinutes < -14*60 || c.DisplayTZOffsetMinutes > 14*60 {
		return errors.New("display timezone offset out of range")
	}
	if c.MaxReadingsPerBin <= 0 {
		return errors.New("max readings per bin must be positive")
	}
	return nil
}

func applyProperties(cfg *Config, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		// Close errors are ignored because configuration loading has
		// already completed and there is no logger available at this
		// stage of initialization.
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, ";") {
			continue
		}
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid properties entry on line %d", line)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if err := setProperty(cfg, key, value); err != nil {
			return fmt.Errorf("property %s: %w", key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read properties: %w", err)
	}
	return nil
}

func setProperty(cfg *Config, key, value string) error {
	switch key {
	case "listen_address":
		if value == "" {
			return errors.New("listen_address cannot be empty")
		}
		cfg.ListenAddress = value
	case "http_read_timeout_ms":
		d, err := parsePositiveMillis(value)
		if err != nil {
			return err
		}
		cfg.HTTPReadTimeout = d
	case "http_write_timeout_ms":
		d, err := parsePositiveMillis(value)
		if err != nil {
			return err
		}
		cfg.HTTPWriteTimeout = d
	case "shutdown_timeout_ms":
		d, err := parsePositiveMillis(value)
		if err != nil {
			return err
		}
		cfg.ShutdownTimeout = d
	case "ingest_source":
		cfg.IngestSource = IngestSource(strings.ToLower(value))
	case "kafka_brokers":
		brokers := splitAndTrim(value)
		if len(brokers) == 0 {
			return errors.New("kafka_brokers cannot be empty")
		}
		cfg.KafkaBrokers = brokers
	case "readings_topic":
		if value == "" {
			return errors.New("readings_topic cannot be empty")
		}
		cfg.ReadingsTopic = value
	case "consumer_group_id":
		if value == "" {
			return errors.New("consumer_group_id cannot be empty")
		}
		cfg.ConsumerGroupID = value
	case "poll_timeout_ms":
		d, err := parsePositiveMillis(value)
		if err != nil {
			return err
		}
		cfg.PollTimeout = d
	case "max_readings_per_bin":
		n, err := parsePositiveInt(value)
		if err != nil {
			return err
		}
		cfg.MaxReadingsPerBin = n
	case "mqtt_broker_url":
		if value == "" {
			return errors.New("mqtt_broker_url cannot be empty")
		}
		cfg.MQTTBrokerURL = value
	case "mqtt_topic":
		if value == "" {
			return errors.New("mqtt_topic cannot be empty")
		}
		cfg.MQTTTopic = value
	case "bin_height_cm":
		f, err := parsePositiveFloat(value)
		if err != nil {
			return err
		}
		cfg.BinHeightCm = f
	case "sensor_error_threshold_cm":
		f, err := parsePositiveFloat(value)
		if err != nil {
			return err
		}
		cfg.SensorErrorThresholdCm = f
	case "weight_drop_threshold":
		f, err := parseNonNegativeFloat(value)
		if err != nil {
			return err
		}
		cfg.WeightDropThreshold = f
	case "volume_drop_threshold_pct":
		f, err := parseNonNegativeFloat(value)
		if err != nil {
			return err
		}
		cfg.VolumeDropThresholdPct = f
	case "display_tz_offset_minutes":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid display_tz_offset_minutes: %w", err)
		}
		cfg.DisplayTZOffsetMinutes = n
	default:
		// Unknown keys are ignored to keep the loader forward-compatible.
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v, ok := lookupEnvTrimmed("LISTEN_ADDRESS"); ok {
		if v == "" {
			return errors.New("LISTEN_ADDRESS cannot be empty")
		}
		cfg.ListenAddress = v
	}
	if v, ok := lookupEnvTrimmed("HTTP_READ_TIMEOUT_MS"); ok {
		d, err := parsePositiveMillis(v)
		if err != nil {
			return fmt.Errorf("HTTP_READ_TIMEOUT_MS: %w", err)
		}
		cfg.HTTPReadTimeout = d
	}
	if v, ok := lookupEnvTrimmed("HTTP_WRITE_TIMEOUT_MS"); ok {
		d, err := parsePositiveMillis(v)
		if err != nil {
			return fmt.Errorf("HTTP_WRITE_TIMEOUT_MS: %w", err)
		}
		cfg.HTTPWriteTimeout = d
	}
	if v, ok := lookupEnvTrimmed("SHUTDOWN_TIMEOUT_MS"); ok {
		d, err := parsePositiveMillis(v)
		if err != nil {
			return fmt.Errorf("SHUTDOWN_TIMEOUT_MS: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	if v, ok := lookupEnvTrimmed("INGEST_SOURCE"); ok {
		cfg.IngestSource = IngestSource(strings.ToLower(v))
	}
	if v, ok := lookupEnvTrimmed("KAFKA_BROKERS"); ok {
		brokers := splitAndTrim(v)
		if len(brokers) == 0 {
			return errors.New("KAFKA_BROKERS cannot be empty")
		}
		cfg.KafkaBrokers = brokers
	}
	if v, ok := lookupEnvTrimmed("READINGS_TOPIC"); ok {
		if v == "" {
			return errors.New("READINGS_TOPIC cannot be empty")
		}
		cfg.ReadingsTopic = v
	}
	if v, ok := lookupEnvTrimmed("CONSUMER_GROUP_ID"); ok {
		if v == "" {
			return errors.New("CONSUMER_GROUP_ID cannot be empty")
		}
		cfg.ConsumerGroupID = v
	}
	if v, ok := lookupEnvTrimmed("POLL_TIMEOUT_MS"); ok {
		d, err := parsePositiveMillis(v)
		if err != nil {
			return fmt.Errorf("POLL_TIMEOUT_MS: %w", err)
		}
		cfg.PollTimeout = d
	}
	if v, ok := lookupEnvTrimmed("MAX_READINGS_PER_BIN"); ok {
		n, err := parsePositiveInt(v)
		if err != nil {
			return fmt.Errorf("MAX_READINGS_PER_BIN: %w", err)
		}
		cfg.MaxReadingsPerBin = n
	}
	if v, ok := lookupEnvTrimmed("MQTT_BROKER_URL"); ok {
		if v == "" {
			return errors.New("MQTT_BROKER_URL cannot be empty")
		}
		cfg.MQTTBrokerURL = v
	}
	if v, ok := lookupEnvTrimmed("MQTT_TOPIC"); ok {
		if v == "" {
			return errors.New("MQTT_TOPIC cannot be empty")
		}
		cfg.MQTTTopic = v
	}
	if v, ok := lookupEnvTrimmed("BIN_HEIGHT_CM"); ok {
		f, err := parsePositiveFloat(v)
		if err != nil {
			return fmt.Errorf("BIN_HEIGHT_CM: %w", err)
		}
		cfg.BinHeightCm = f
	}
	if v, ok := lookupEnvTrimmed("SENSOR_ERROR_THRESHOLD_CM"); ok {
		f, err := parsePositiveFloat(v)
		if err != nil {
			return fmt.Errorf("SENSOR_ERROR_THRESHOLD_CM: %w", err)
		}
		cfg.SensorErrorThresholdCm = f
	}
	if v, ok := lookupEnvTrimmed("WEIGHT_DROP_THRESHOLD"); ok {
		f, err := parseNonNegativeFloat(v)
		if err != nil {
			return fmt.Errorf("WEIGHT_DROP_THRESHOLD: %w", err)
		}
		cfg.WeightDropThreshold = f
	}
	if v, ok := lookupEnvTrimmed("VOLUME_DROP_THRESHOLD_PCT"); ok {
		f, err := parseNonNegativeFloat(v)
		if err != nil {
			return fmt.Errorf("VOLUME_DROP_THRESHOLD_PCT: %w", err)
		}
		cfg.VolumeDropThresholdPct = f
	}
	if v, ok := lookupEnvTrimmed("DISPLAY_TZ_OFFSET_MINUTES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DISPLAY_TZ_OFFSET_MINUTES: %w", err)
		}
		cfg.DisplayTZOffsetMinutes = n
	}
	return nil
}

func lookupEnvTrimmed(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func splitAndTrim(raw string) []string {
	fields := strings.Split(raw, ",")
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		trimmed := strings.TrimSpace(field)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parsePositiveMillis(v string) (time.Duration, error) {
	if strings.TrimSpace(v) == "" {
		return 0, errors.New("value cannot be empty")
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %w", err)
	}
	if ms <= 0 {
		return 0, errors.New("value must be greater than zero")
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func parsePositiveInt(v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %w", err)
	}
	if n <= 0 {
		return 0, errors.New("value must be greater than zero")
	}
	return n, nil
}

func parsePositiveFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %w", err)
	}
	if f <= 0 {
		return 0, errors.New("value must be greater than zero")
	}
	return f, nil
}

func parseNonNegativeFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %w", err)
	}
	if f < 0 {
		return 0, errors.New("value must not be negative")
	}
	return f, nil
}
