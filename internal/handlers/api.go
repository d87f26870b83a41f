package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"bcs-dashboard/internal/dates"
	"bcs-dashboard/internal/errors"
	"bcs-dashboard/internal/export"
	"bcs-dashboard/internal/models"
	"bcs-dashboard/internal/observability"
	"bcs-dashboard/internal/services"
	"bcs-dashboard/internal/timeline"
)

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func (h *APIHandlers) queryParams(r *http.Request) (string, dates.RangeID, uint32, error) {
	return resolveParams(h.analytics, r)
}

// resolveParams resolves the (tenant, range, seed) triple every data endpoint
// accepts. Missing parameters fall back to the configured defaults; malformed
// ones are rejected, never silently coerced.
func resolveParams(a *services.Analytics, r *http.Request) (string, dates.RangeID, uint32, error) {
	defaults := a.Defaults()
	q := r.URL.Query()

	tenant := q.Get("tenant")
	if tenant == "" {
		tenant = defaults.DefaultTenant
	}

	rangeParam := q.Get("range")
	if rangeParam == "" {
		rangeParam = defaults.DefaultRange
	}
	rangeID, err := dates.ParseRange(rangeParam)
	if err != nil {
		return "", "", 0, errors.BadRequestWrap(err, "invalid range parameter")
	}

	seed := defaults.DefaultSeed
	if seedParam := q.Get("seed"); seedParam != "" {
		parsed, err := strconv.ParseUint(seedParam, 10, 32)
		if err != nil {
			return "", "", 0, errors.BadRequestWrap(err, "invalid seed parameter")
		}
		seed = uint32(parsed)
	}

	return tenant, rangeID, seed, nil
}

func (h *APIHandlers) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
}

var cacheHeaders = map[string]string{
	"Cache-Control": "public, max-age=300",
}

func (h *APIHandlers) HandleTenants(w http.ResponseWriter, r *http.Request) {

	data := h.analytics.Tenants()

	errors.WriteSuccessWithHeaders(w, data, cacheHeaders)
}

type kpisPayload struct {
	Categories models.CategoryKPIs     `json:"categories"`
	Trends     map[string]models.Trend `json:"trends"`
}

func (h *APIHandlers) HandleKpis(w http.ResponseWriter, r *http.Request) {
	tenant, rangeID, seed, err := h.queryParams(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	snap := h.analytics.Snapshot(tenant, rangeID, seed)

	errors.WriteSuccessWithHeaders(w, kpisPayload{Categories: snap.Categories, Trends: snap.Trends}, cacheHeaders)
}

func (h *APIHandlers) HandleFunnel(w http.ResponseWriter, r *http.Request) {
	tenant, rangeID, seed, err := h.queryParams(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	snap := h.analytics.Snapshot(tenant, rangeID, seed)

	errors.WriteSuccessWithHeaders(w, snap.Funnel, cacheHeaders)
}

func (h *APIHandlers) HandleChannelMix(w http.ResponseWriter, r *http.Request) {
	tenant, rangeID, seed, err := h.queryParams(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	snap := h.analytics.Snapshot(tenant, rangeID, seed)

	errors.WriteSuccessWithHeaders(w, snap.Channels, cacheHeaders)
}

func (h *APIHandlers) HandleTopErrors(w http.ResponseWriter, r *http.Request) {
	tenant, rangeID, seed, err := h.queryParams(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	snap := h.analytics.Snapshot(tenant, rangeID, seed)

	errors.WriteSuccessWithHeaders(w, snap.TopErrors, cacheHeaders)
}

func (h *APIHandlers) HandleDaily(w http.ResponseWriter, r *http.Request) {
	tenant, rangeID, seed, err := h.queryParams(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	snap := h.analytics.Snapshot(tenant, rangeID, seed)

	errors.WriteSuccessWithHeaders(w, snap.Daily, cacheHeaders)
}

func (h *APIHandlers) HandleLatency(w http.ResponseWriter, r *http.Request) {
	tenant, rangeID, seed, err := h.queryParams(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	snap := h.analytics.Snapshot(tenant, rangeID, seed)

	errors.WriteSuccessWithHeaders(w, snap.Latency, cacheHeaders)
}

func (h *APIHandlers) HandleErrorTrend(w http.ResponseWriter, r *http.Request) {
	tenant, rangeID, seed, err := h.queryParams(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	snap := h.analytics.Snapshot(tenant, rangeID, seed)

	errors.WriteSuccessWithHeaders(w, snap.ErrorTrend, cacheHeaders)
}

type hourlyErrorsPayload struct {
	Hourly    []models.HourlyErrors `json:"hourly"`
	Incidents []models.ErrorGroup   `json:"incidents"`
}

func (h *APIHandlers) HandleHourlyErrors(w http.ResponseWriter, r *http.Request) {
	tenant, rangeID, seed, err := h.queryParams(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	hourly, incidents := h.analytics.HourlyErrors(tenant, rangeID, seed)

	errors.WriteSuccess(w, hourlyErrorsPayload{Hourly: hourly, Incidents: incidents})
}

func (h *APIHandlers) HandleTimeline(w http.ResponseWriter, r *http.Request) {
	tenant, rangeID, seed, err := h.queryParams(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	metric := timeline.Metric(r.URL.Query().Get("metric"))
	if metric == "" {
		h.writeErr(w, r, errors.BadRequest("metric parameter is required"))
		return
	}

	series, err := h.analytics.Timeline(metric, tenant, rangeID, seed)
	if err != nil {
		h.writeErr(w, r, errors.NotFound("unknown metric"))
		return
	}

	errors.WriteSuccessWithHeaders(w, series, cacheHeaders)
}

type averagesPayload struct {
	KPIs   services.KPIAverages   `json:"kpis"`
	Charts services.ChartAverages `json:"charts"`
}

func (h *APIHandlers) HandleAverages(w http.ResponseWriter, r *http.Request) {
	tenant, rangeID, seed, err := h.queryParams(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	snap := h.analytics.Snapshot(tenant, rangeID, seed)

	errors.WriteSuccessWithHeaders(w, averagesPayload{KPIs: snap.KPIAverages, Charts: snap.Charts}, cacheHeaders)
}

func (h *APIHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	tenant, rangeID, seed, err := h.queryParams(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	snap := h.analytics.Snapshot(tenant, rangeID, seed)

	errors.WriteSuccess(w, snap.Status)
}

func (h *APIHandlers) HandleExportEvents(w http.ResponseWriter, r *http.Request) {
	tenant, rangeID, seed, err := h.queryParams(r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	snap := h.analytics.Snapshot(tenant, rangeID, seed)
	csv := export.EventsToCSV(snap.Rows)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+tenant+`-events.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(csv))
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {

	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {

	stats := h.analytics.Stats()

	errors.WriteSuccess(w, stats)
}
