package server

import (
	"log/slog"
	"net/http"

	"bcs-dashboard/internal/handlers"
	"bcs-dashboard/internal/services"
)

type Server struct {
	analytics   *services.Analytics
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

func NewServer(analytics *services.Analytics, logger *slog.Logger) *Server {
	s := &Server{
		analytics:   analytics,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(analytics, logger),
		sseHandlers: handlers.NewSSEHandlers(analytics, logger),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/tenants", s.apiHandlers.HandleTenants)
	s.mux.HandleFunc("GET /api/kpis", s.apiHandlers.HandleKpis)
	s.mux.HandleFunc("GET /api/funnel", s.apiHandlers.HandleFunnel)
	s.mux.HandleFunc("GET /api/channel-mix", s.apiHandlers.HandleChannelMix)
	s.mux.HandleFunc("GET /api/top-errors", s.apiHandlers.HandleTopErrors)
	s.mux.HandleFunc("GET /api/daily", s.apiHandlers.HandleDaily)
	s.mux.HandleFunc("GET /api/latency", s.apiHandlers.HandleLatency)
	s.mux.HandleFunc("GET /api/error-trend", s.apiHandlers.HandleErrorTrend)
	s.mux.HandleFunc("GET /api/hourly-errors", s.apiHandlers.HandleHourlyErrors)
	s.mux.HandleFunc("GET /api/timeline", s.apiHandlers.HandleTimeline)
	s.mux.HandleFunc("GET /api/averages", s.apiHandlers.HandleAverages)
	s.mux.HandleFunc("GET /api/system-status", s.apiHandlers.HandleSystemStatus)
	s.mux.HandleFunc("GET /api/export/events.csv", s.apiHandlers.HandleExportEvents)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/kpis", s.sseHandlers.HandleKpis)
	s.mux.HandleFunc("GET /sse/system-status", s.sseHandlers.HandleSystemStatus)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
