// v1
// internal/api/handlers.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/gorilla/mux"

	"wastwatcher/dashboard/internal/analytics"
	"wastwatcher/dashboard/internal/observability"
)

type handlers struct {
	logger  *slog.Logger
	engine  *analytics.Engine
	source  readingSource
	metrics *observability.Metrics
}

// seriesResponse mirrors the JSON document returned by the series
// endpoints so it remains stable even as the backing logic evolves.
type seriesResponse struct {
	BinID       string        `json:"binId"`
	Category    string        `json:"category,omitempty"`
	Metric      string        `json:"metric"`
	Granularity string        `json:"granularity"`
	From        string        `json:"from"`
	To          string        `json:"to"`
	Points      []seriesPoint `json:"points"`
}

type seriesPoint struct {
	Label         string  `json:"label"`
	FullTimestamp string  `json:"fullTimestamp"`
	Value         float64 `json:"value"`
}

type dailyResponse struct {
	BinID    string     `json:"binId"`
	Category string     `json:"category"`
	Metric   string     `json:"metric"`
	From     string     `json:"from"`
	To       string     `json:"to"`
	Days     []dailyDay `json:"days"`
}

type dailyDay struct {
	Date           string  `json:"date"`
	TotalGenerated float64 `json:"totalGenerated"`
}

type latestResponse struct {
	BinID          string  `json:"binId"`
	Category       string  `json:"category"`
	Timestamp      string  `json:"timestamp"`
	FillPercentage float64 `json:"fillPercentage"`
	Weight         float64 `json:"weight"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) listBins(w http.ResponseWriter, r *http.Request) {
	bins := h.source.Bins()
	if bins == nil {
		bins = []string{}
	}
	writeJSON(h.logger, w, http.StatusOK, map[string][]string{"bins": bins})
}

func (h *handlers) series(w http.ResponseWriter, r *http.Request) {
	binID := mux.Vars(r)["binId"]
	params, err := h.parseSeriesParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	readings := h.source.SnapshotRange(binID, params.category, params.from, params.to)
	points := h.engine.Bucket(h.engine.NormalizeAll(readings), params.metric, params.from, params.to, params.granularity)
	h.metrics.SeriesComputed(params.metric.String(), params.granularity.String())

	writeJSON(h.logger, w, http.StatusOK, seriesResponse{
		BinID:       binID,
		Category:    string(params.category),
		Metric:      params.metric.String(),
		Granularity: params.granularity.String(),
		From:        params.from.In(h.engine.Location()).Format(time.RFC3339),
		To:          params.to.In(h.engine.Location()).Format(time.RFC3339),
		Points:      toSeriesPoints(points),
	})
}

// combinedSeries merges the organic and inorganic streams of one bin
// into a total series: weights add, fill percentages average.
func (h *handlers) combinedSeries(w http.ResponseWriter, r *http.Request) {
	binID := mux.Vars(r)["binId"]
	params, err := h.parseSeriesParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(r.URL.Query().Get("category")) != "" {
		writeError(w, http.StatusBadRequest, "combined series does not accept a category")
		return
	}

	bucketFor := func(c analytics.Category) []analytics.BucketedPoint {
		readings := h.source.SnapshotRange(binID, c, params.from, params.to)
		return h.engine.Bucket(h.engine.NormalizeAll(readings), params.metric, params.from, params.to, params.granularity)
	}
	combined := h.engine.Compose(bucketFor(analytics.CategoryOrganic), bucketFor(analytics.CategoryInorganic), params.metric)
	h.metrics.SeriesComputed(params.metric.String(), params.granularity.String())

	writeJSON(h.logger, w, http.StatusOK, seriesResponse{
		BinID:       binID,
		Metric:      params.metric.String(),
		Granularity: params.granularity.String(),
		From:        params.from.In(h.engine.Location()).Format(time.RFC3339),
		To:          params.to.In(h.engine.Location()).Format(time.RFC3339),
		Points:      toSeriesPoints(combined),
	})
}

func (h *handlers) dailyTotals(w http.ResponseWriter, r *http.Request) {
	binID := mux.Vars(r)["binId"]
	params, err := h.parseSeriesParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	readings := h.source.SnapshotRange(binID, params.category, params.from, params.to)
	totals := h.engine.DailyTotals(h.engine.NormalizeAll(readings), params.metric, params.from, params.to)

	days := make([]dailyDay, 0, len(totals))
	for _, t := range totals {
		days = append(days, dailyDay{
			Date:           t.Date.In(h.engine.Location()).Format("2006-01-02"),
			TotalGenerated: t.TotalGenerated,
		})
	}

	writeJSON(h.logger, w, http.StatusOK, dailyResponse{
		BinID:    binID,
		Category: string(params.category),
		Metric:   params.metric.String(),
		From:     params.from.In(h.engine.Location()).Format(time.RFC3339),
		To:       params.to.In(h.engine.Location()).Format(time.RFC3339),
		Days:     days,
	})
}

func (h *handlers) latest(w http.ResponseWriter, r *http.Request) {
	binID := mux.Vars(r)["binId"]
	category, err := parseCategoryParam(r, analytics.CategoryOrganic)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reading, ok := h.source.Latest(binID, category)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no readings for bin %q category %q", binID, category))
		return
	}
	point := h.engine.Normalize(reading)

	writeJSON(h.logger, w, http.StatusOK, latestResponse{
		BinID:          binID,
		Category:       string(category),
		Timestamp:      point.Timestamp.In(h.engine.Location()).Format(time.RFC3339),
		FillPercentage: point.FillPercentage,
		Weight:         point.Weight,
	})
}

type seriesParams struct {
	category    analytics.Category
	metric      analytics.Metric
	granularity analytics.Granularity
	from        time.Time
	to          time.Time
}

// parseSeriesParams resolves the shared query parameters. Absent
// parameters fall back to defaults (organic, volume, hourly, the last 24
// hours); present but unusable ones are client errors.
func (h *handlers) parseSeriesParams(r *http.Request) (seriesParams, error) {
	q := r.URL.Query()
	out := seriesParams{
		category:    analytics.CategoryOrganic,
		metric:      analytics.MetricVolume,
		granularity: analytics.GranularityHour,
	}

	category, err := parseCategoryParam(r, analytics.CategoryOrganic)
	if err != nil {
		return seriesParams{}, err
	}
	out.category = category

	if raw := strings.TrimSpace(q.Get("metric")); raw != "" {
		m, err := analytics.ParseMetric(raw)
		if err != nil {
			return seriesParams{}, err
		}
		out.metric = m
	}
	if raw := strings.TrimSpace(q.Get("granularity")); raw != "" {
		g, err := analytics.ParseGranularity(raw)
		if err != nil {
			return seriesParams{}, err
		}
		out.granularity = g
	}

	now := time.Now().In(h.engine.Location())
	out.from = now.Add(-24 * time.Hour)
	out.to = now
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		t, err := h.parseTimeParam(raw)
		if err != nil {
			return seriesParams{}, fmt.Errorf("from: %w", err)
		}
		out.from = t
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		t, err := h.parseTimeParam(raw)
		if err != nil {
			return seriesParams{}, fmt.Errorf("to: %w", err)
		}
		out.to = t
	}
	if !out.from.Before(out.to) {
		return seriesParams{}, fmt.Errorf("from %s must precede to %s", out.from.Format(time.RFC3339), out.to.Format(time.RFC3339))
	}

	return out, nil
}

// parseTimeParam accepts RFC3339 instants as well as display-timezone
// wall-clock forms ("2006-01-02" and "2006-01-02 15:04:05").
func (h *handlers) parseTimeParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", raw, h.engine.Location()); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, h.engine.Location()); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", raw)
}

func parseCategoryParam(r *http.Request, def analytics.Category) (analytics.Category, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("category"))
	if raw == "" {
		return def, nil
	}
	return analytics.ParseCategory(raw)
}

func toSeriesPoints(points []analytics.BucketedPoint) []seriesPoint {
	out := make([]seriesPoint, 0, len(points))
	for _, p := range points {
		out = append(out, seriesPoint{
			Label:         p.Label,
			FullTimestamp: p.FullTimestamp,
			Value:         p.Value,
		})
	}
	return out
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Error("response_encode_failed", slog.Any("err", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}
