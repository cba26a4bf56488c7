// v1
// internal/app/app.go

// Package app wires configuration, logging, ingest, the aggregation
// engine, and the HTTP server into one runnable dashboard service with
// graceful shutdown handling.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"log/slog"

	ghandlers "github.com/gorilla/handlers"

	"wastwatcher/dashboard/internal/analytics"
	"wastwatcher/dashboard/internal/api"
	"wastwatcher/dashboard/internal/config"
	"wastwatcher/dashboard/internal/ingest"
	"wastwatcher/dashboard/internal/logging"
	"wastwatcher/dashboard/internal/observability"
)

// ingestSource is the common shape of the Kafka consumer and the MQTT
// subscriber; the application runs exactly one of them.
type ingestSource interface {
	Run(ctx context.Context) error
}

// Application holds the wired components of the dashboard service.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	logFile  *os.File
	server   *http.Server
	store    *ingest.Store
	health   *api.HealthState
	ingest   ingestSource
	consumer *ingest.Consumer
}

// New prepares a fully wired service instance using the supplied
// configuration.
func New(cfg config.Config) (*Application, error) {
	logger, logFile := logging.Init("dashboard")

	engine, err := analytics.NewEngine(analytics.Settings{
		BinHeightCm:            cfg.BinHeightCm,
		SensorErrorThresholdCm: cfg.SensorErrorThresholdCm,
		WeightDropThreshold:    cfg.WeightDropThreshold,
		VolumeDropThresholdPct: cfg.VolumeDropThresholdPct,
		DisplayTZOffsetMinutes: cfg.DisplayTZOffsetMinutes,
	})
	if err != nil {
		closeQuietly(logFile)
		return nil, fmt.Errorf("engine init: %w", err)
	}

	metrics := observability.NewMetrics()
	store := ingest.NewStore(cfg.MaxReadingsPerBin)
	health := api.NewHealthState()

	app := &Application{cfg: cfg, logger: logger, logFile: logFile, store: store, health: health}

	switch cfg.IngestSource {
	case config.SourceMQTT:
		source, err := ingest.NewMQTTSource(ingest.MQTTSourceConfig{
			BrokerURL: cfg.MQTTBrokerURL,
			Topic:     cfg.MQTTTopic,
			QoS:       1,
		}, store, metrics, logger.With(slog.String("component", "mqtt_source")))
		if err != nil {
			closeQuietly(logFile)
			return nil, fmt.Errorf("mqtt source init: %w", err)
		}
		app.ingest = source
	default:
		consumer, err := ingest.NewConsumer(ingest.ConsumerConfig{
			Brokers:     cfg.KafkaBrokers,
			Topic:       cfg.ReadingsTopic,
			GroupID:     cfg.ConsumerGroupID,
			PollTimeout: cfg.PollTimeout,
		}, store, metrics, logger.With(slog.String("component", "readings_consumer")))
		if err != nil {
			closeQuietly(logFile)
			return nil, fmt.Errorf("readings consumer init: %w", err)
		}
		app.ingest = consumer
		app.consumer = consumer
	}

	router := api.NewRouter(logger, engine, store, metrics, health)
	cors := ghandlers.CORS(
		ghandlers.AllowedOrigins([]string{"*"}),
		ghandlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		ghandlers.AllowedHeaders([]string{"Content-Type", "X-Request-Id"}),
	)

	app.server = &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           cors(router),
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPWriteTimeout,
	}

	return app, nil
}

// Logger exposes the configured slog logger so callers (such as main)
// can emit structured logs after initialization.
func (a *Application) Logger() *slog.Logger {
	return a.logger
}

// Run blocks until the context is cancelled or a component terminates
// unexpectedly, then drives graceful shutdown.
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpCh := make(chan error, 1)
	go func() {
		a.health.SetReady(true)
		a.logger.Info("http_server_listen", slog.String("address", a.cfg.ListenAddress))
		httpCh <- a.server.ListenAndServe()
	}()

	ingestCh := make(chan error, 1)
	go func() {
		ingestCh <- a.ingest.Run(ctx)
	}()

	var httpErr, ingestErr error
	for {
		select {
		case err := <-httpCh:
			httpErr = err
			httpCh = nil
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("http_server_error", slog.Any("err", err))
			} else {
				a.logger.Info("server_closed")
			}
			cancel()
		case err := <-ingestCh:
			ingestErr = err
			ingestCh = nil
			if err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("ingest_error", slog.Any("err", err))
			} else {
				a.logger.Info("ingest_stopped")
			}
			cancel()
		case <-ctx.Done():
			a.logger.Info("shutdown_signal")
			a.health.SetReady(false)
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
			if err := a.server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("server_shutdown_failed", slog.Any("err", err))
				if httpErr == nil {
					httpErr = fmt.Errorf("shutdown: %w", err)
				}
			}
			shutdownCancel()

			if httpCh != nil {
				if err := <-httpCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
					if httpErr == nil {
						httpErr = err
					}
				}
			}
			if ingestCh != nil {
				if err := <-ingestCh; err != nil && !errors.Is(err, context.Canceled) {
					if ingestErr == nil {
						ingestErr = err
					}
				}
			}

			if ingestErr != nil && !errors.Is(ingestErr, context.Canceled) {
				return ingestErr
			}
			if httpErr != nil && !errors.Is(httpErr, http.ErrServerClosed) {
				return httpErr
			}
			a.logger.Info("shutdown_complete")
			return nil
		}
	}
}

func closeQuietly(f *os.File) {
	if f != nil {
		_ = f.Close()
	}
}

// Close flushes and closes resources owned by the application instance.
func (a *Application) Close() error {
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			return err
		}
		a.consumer = nil
	}
	if a.logFile == nil {
		return nil
	}
	if err := a.logFile.Close(); err != nil {
		return err
	}
	a.logFile = nil
	return nil
}
