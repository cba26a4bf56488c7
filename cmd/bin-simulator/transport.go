// v1
// cmd/bin-simulator/transport.go

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"wastwatcher/dashboard/internal/circuitbreaker"
)

// publisher abstracts the two supported transports so the main loop
// stays identical for Kafka and MQTT fleets.
type publisher interface {
	Publish(ctx context.Context, r simReading) error
	Close() error
}

type kafkaPublisher struct {
	raw    *kafka.Writer
	writer *circuitbreaker.CBKafkaWriter
	log    *slog.Logger
}

func newKafkaPublisher(cfg SimConfig, log *slog.Logger) (*kafkaPublisher, error) {
	raw := &kafka.Writer{
		Addr:     kafka.TCP(cfg.KafkaBrokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.Hash{},
	}
	breaker, err := circuitbreaker.NewKafkaBreakerFromEnv("bin-simulator-publisher", log, nil)
	if err != nil {
		return nil, fmt.Errorf("publisher breaker init: %w", err)
	}
	return &kafkaPublisher{
		raw:    raw,
		writer: circuitbreaker.NewCBKafkaWriter(raw, breaker),
		log:    log,
	}, nil
}

func (p *kafkaPublisher) Publish(ctx context.Context, r simReading) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}
	// Keyed by bin so one bin's readings stay ordered within a partition.
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(r.BinID), Value: b, Time: r.Timestamp}); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.raw.Close()
}

type mqttPublisher struct {
	client mqtt.Client
	prefix string
	log    *slog.Logger
}

func newMQTTPublisher(cfg SimConfig, log *slog.Logger) (*mqttPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBrokerURL).
		SetClientID("bin-simulator-" + uuid.NewString()).
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &mqttPublisher{client: client, prefix: cfg.MQTTTopicPrefix, log: log}, nil
}

func (p *mqttPublisher) Publish(_ context.Context, r simReading) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}
	topic := p.prefix + "/" + r.BinID
	if token := p.client.Publish(topic, 1, false, b); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, token.Error())
	}
	return nil
}

func (p *mqttPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
