// v1
// cmd/bin-simulator/main.go

// bin-simulator publishes synthetic smart-bin readings so the dashboard
// can be exercised without hardware: fill levels ramp, pickups empty
// compartments, and sensors occasionally fault.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	logger.Info("bin simulator starting")

	cfg, err := buildConfig()
	if err != nil {
		logger.Error("config error", slog.Any("err", err))
		os.Exit(1)
	}

	fleet := NewFleet(cfg, time.Now().UnixNano())
	logger.Info("fleet ready",
		slog.Int("bins", cfg.BinCount),
		slog.String("binIds", strings.Join(fleet.BinIDs(), ",")),
		slog.String("transport", cfg.Transport),
		slog.String("interval", cfg.PublishInterval.String()),
	)

	var pub publisher
	switch cfg.Transport {
	case "mqtt":
		pub, err = newMQTTPublisher(cfg, logger)
	default:
		pub, err = newKafkaPublisher(cfg, logger)
	}
	if err != nil {
		logger.Error("publisher init failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if cerr := pub.Close(); cerr != nil {
			logger.Error("publisher close failed", slog.Any("err", cerr))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(cfg.PublishInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			for _, r := range fleet.Tick(now) {
				if err := pub.Publish(ctx, r); err != nil {
					if ctx.Err() != nil {
						return
					}
					logger.Warn("publish failed", slog.Any("err", err), slog.String("binId", r.BinID))
				}
			}
		case <-ctx.Done():
			logger.Info("shutdown signal received")
			return
		}
	}
}
