// v1
// internal/ingest/mqtt.go
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"wastwatcher/dashboard/internal/observability"
)

// MQTTSourceConfig captures the tunables for the MQTT ingest path, used
// by sites whose bins publish straight to a broker without a Kafka hop.
type MQTTSourceConfig struct {
	BrokerURL string
	Topic     string
	ClientID  string
	QoS       byte
}

// MQTTSource subscribes to the readings topic and feeds the same store
// the Kafka consumer would.
type MQTTSource struct {
	cfg     MQTTSourceConfig
	client  mqtt.Client
	store   *Store
	metrics *observability.Metrics
	log     *slog.Logger
}

// NewMQTTSource validates the configuration and prepares a client. The
// connection is established by Run.
func NewMQTTSource(cfg MQTTSourceConfig, store *Store, metrics *observability.Metrics, log *slog.Logger) (*MQTTSource, error) {
	if log == nil {
		return nil, errors.New("logger must not be nil")
	}
	if store == nil {
		return nil, errors.New("store must not be nil")
	}
	if strings.TrimSpace(cfg.BrokerURL) == "" {
		return nil, errors.New("broker URL must not be empty")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("readings topic must not be empty")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "wastwatcher-dashboard-" + uuid.NewString()
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	return &MQTTSource{cfg: cfg, client: mqtt.NewClient(opts), store: store, metrics: metrics, log: log}, nil
}

// Run connects, subscribes, and blocks until the context is cancelled.
func (s *MQTTSource) Run(ctx context.Context) error {
	if s == nil {
		return errors.New("nil mqtt source")
	}

	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	s.log.Info("mqtt_source_connected",
		slog.String("broker", s.cfg.BrokerURL),
		slog.String("clientId", s.cfg.ClientID),
	)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		reading, err := decodeReading(msg.Payload())
		if err != nil {
			s.log.Warn("mqtt_source_decode_error", slog.Any("err", err), slog.String("topic", msg.Topic()))
			if s.metrics != nil {
				s.metrics.IngestDecodeError()
			}
			return
		}
		count, _ := s.store.Append(reading)
		if s.metrics != nil {
			s.metrics.ReadingIngested("mqtt")
		}
		s.log.Info("reading_buffered",
			slog.String("binId", reading.BinID),
			slog.String("category", string(reading.Category)),
			slog.Time("timestamp", reading.Timestamp.UTC()),
			slog.Int("bufferDepth", count),
		)
	}

	if token := s.client.Subscribe(s.cfg.Topic, s.cfg.QoS, handler); token.Wait() && token.Error() != nil {
		s.client.Disconnect(250)
		return fmt.Errorf("mqtt subscribe %q: %w", s.cfg.Topic, token.Error())
	}
	s.log.Info("mqtt_source_subscribed", slog.String("topic", s.cfg.Topic))

	<-ctx.Done()
	s.client.Disconnect(250)
	return ctx.Err()
}
