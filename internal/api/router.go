// v1
// internal/api/router.go

// Package api exposes the dashboard's HTTP surface: bin discovery,
// chart-ready series, reconstructed daily totals, and the latest reading
// per bin, plus health and metrics endpoints for orchestration.
package api

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/gorilla/mux"

	"wastwatcher/dashboard/internal/analytics"
	"wastwatcher/dashboard/internal/observability"
)

// readingSource exposes the subset of the ingest store used by the
// handlers. A small interface keeps the router agnostic to the buffering
// implementation and makes the handlers testable with fixtures.
type readingSource interface {
	Bins() []string
	Snapshot(bin string, category analytics.Category) []analytics.RawReading
	SnapshotRange(bin string, category analytics.Category, from, to time.Time) []analytics.RawReading
	Latest(bin string, category analytics.Category) (analytics.RawReading, bool)
}

// NewRouter wires all HTTP routes exposed by the dashboard service.
func NewRouter(logger *slog.Logger, engine *analytics.Engine, source readingSource, metrics *observability.Metrics, health *HealthState) *mux.Router {
	h := &handlers{logger: logger, engine: engine, source: source, metrics: metrics}

	r := mux.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog(logger))

	r.Handle("/health", healthLiveHandler()).Methods(http.MethodGet)
	r.Handle("/health/live", healthLiveHandler()).Methods(http.MethodGet)
	r.Handle("/health/ready", healthReadyHandler(health)).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Handle("/bins", metrics.WrapHandler("bins", http.HandlerFunc(h.listBins))).Methods(http.MethodGet)
	v1.Handle("/bins/{binId}/series", metrics.WrapHandler("series", http.HandlerFunc(h.series))).Methods(http.MethodGet)
	v1.Handle("/bins/{binId}/series/combined", metrics.WrapHandler("series_combined", http.HandlerFunc(h.combinedSeries))).Methods(http.MethodGet)
	v1.Handle("/bins/{binId}/daily", metrics.WrapHandler("daily", http.HandlerFunc(h.dailyTotals))).Methods(http.MethodGet)
	v1.Handle("/bins/{binId}/latest", metrics.WrapHandler("latest", http.HandlerFunc(h.latest))).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

func healthLiveHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

func healthReadyHandler(health *HealthState) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if health == nil || !health.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("NOT_READY"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}
