package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"bcs-dashboard/internal/models"
	"bcs-dashboard/internal/services"
)

var statusBannerTemplate = template.Must(template.New("statusBanner").Parse(`
<div id="system-status" class="status-banner status-{{.Status}}">
<strong>{{.Title}}</strong>
<p>{{.Description}}</p>
<p class="status-guidance">{{.UserGuidance}}</p>
<span class="status-uptime">Uptime {{printf "%.1f" .Uptime}}%</span>
</div>`))

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func (h *SSEHandlers) renderStatusBanner(status models.SystemStatus) (string, error) {
	var buf strings.Builder
	err := statusBannerTemplate.Execute(&buf, status)
	return buf.String(), err
}

func (h *SSEHandlers) HandleKpis(w http.ResponseWriter, r *http.Request) {
	tenant, rangeID, seed, err := resolveParams(h.analytics, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sse := datastar.NewSSE(w, r)

	snap := h.analytics.Snapshot(tenant, rangeID, seed)
	jsonData, err := json.Marshal(map[string]any{
		"kpisData":     snap.Categories,
		"trendsData":   snap.Trends,
		"averagesData": snap.KPIAverages,
	})
	if err != nil {
		h.logger.Error("marshal kpis data", "error", err)
		return
	}
	sse.PatchSignals(jsonData)

	sse.PatchElements(`<div id="kpis-content">✅ KPI data loaded</div>`)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	tenant, rangeID, seed, err := resolveParams(h.analytics, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sse := datastar.NewSSE(w, r)

	snap := h.analytics.Snapshot(tenant, rangeID, seed)
	html, err := h.renderStatusBanner(snap.Status)
	if err != nil {
		h.logger.Error("render status banner", "error", err)
		return
	}
	sse.PatchElements(html)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	tenant, rangeID, seed, err := resolveParams(h.analytics, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sse := datastar.NewSSE(w, r)

	snap := h.analytics.Snapshot(tenant, rangeID, seed)

	html, err := h.renderStatusBanner(snap.Status)
	if err != nil {
		h.logger.Error("render status banner", "error", err)
		return
	}
	sse.PatchElements(html)

	hourly, incidents := h.analytics.HourlyErrors(tenant, rangeID, seed)

	// Send all signals in one call
	allSignals, err := json.Marshal(map[string]any{
		"kpisData":      snap.Categories,
		"trendsData":    snap.Trends,
		"averagesData":  snap.KPIAverages,
		"dailyData":     snap.Daily,
		"latencyData":   snap.Latency,
		"funnelData":    snap.Funnel,
		"channelsData":  snap.Channels,
		"topErrorsData": snap.TopErrors,
		"hourlyData":    hourly,
		"incidentsData": incidents,
	})
	if err != nil {
		h.logger.Error("marshal all signals data", "error", err)
		return
	}
	sse.PatchSignals(allSignals)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
