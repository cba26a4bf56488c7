// v1
// cmd/bin-simulator/config.go

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// SimConfig drives the synthetic bin fleet. Everything comes from the
// environment so compose files can spin up several differently shaped
// fleets against one broker.
type SimConfig struct {
	Transport       string // kafka or mqtt
	KafkaBrokers    []string
	Topic           string
	MQTTBrokerURL   string
	MQTTTopicPrefix string

	BinCount         int
	PublishInterval  time.Duration
	BinHeightCm      float64
	FaultProbability float64
	PickupEvery      time.Duration
}

func buildConfig() (SimConfig, error) {
	cfg := SimConfig{
		Transport:        envStr("SIM_TRANSPORT", "kafka"),
		KafkaBrokers:     splitCSV(envStr("KAFKA_BROKERS", "kafka:9092")),
		Topic:            envStr("READINGS_TOPIC", "wastwatcher.readings"),
		MQTTBrokerURL:    envStr("MQTT_BROKER_URL", "tcp://mosquitto:1883"),
		MQTTTopicPrefix:  envStr("MQTT_TOPIC_PREFIX", "wastwatcher/readings"),
		BinCount:         envInt("SIM_BIN_COUNT", 3),
		PublishInterval:  envDuration("SIM_PUBLISH_INTERVAL", 5*time.Second),
		BinHeightCm:      envFloat("BIN_HEIGHT_CM", 60),
		FaultProbability: envFloat("SIM_FAULT_PROBABILITY", 0.02),
		PickupEvery:      envDuration("SIM_PICKUP_EVERY", 6*time.Hour),
	}

	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	if cfg.Transport != "kafka" && cfg.Transport != "mqtt" {
		return SimConfig{}, fmt.Errorf("SIM_TRANSPORT must be kafka or mqtt, got %q", cfg.Transport)
	}
	if cfg.BinCount <= 0 {
		return SimConfig{}, fmt.Errorf("SIM_BIN_COUNT must be positive, got %d", cfg.BinCount)
	}
	if cfg.PublishInterval <= 0 {
		return SimConfig{}, fmt.Errorf("SIM_PUBLISH_INTERVAL must be positive")
	}
	if cfg.BinHeightCm <= 0 {
		return SimConfig{}, fmt.Errorf("BIN_HEIGHT_CM must be positive")
	}
	if cfg.FaultProbability < 0 || cfg.FaultProbability > 1 {
		return SimConfig{}, fmt.Errorf("SIM_FAULT_PROBABILITY must be within [0,1]")
	}
	return cfg, nil
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(raw string) []string {
	fields := strings.Split(raw, ",")
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := strings.TrimSpace(f); t != "" {
			out = append(out, t)
		}
	}
	return out
}
