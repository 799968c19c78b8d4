package httpadapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.DashboardView())
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	includeResolved := r.URL.Query().Get("includeResolved") == "true"
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": s.monitor.Alerts(includeResolved),
		"states": s.monitor.States(),
	})
}

func (s *Server) handleMonitoringMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": s.monitor.Snapshots()})
}

func (s *Server) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.monitor.ResolveAlert(id) {
		writeJSONError(w, http.StatusNotFound, "not_found", "unknown or already resolved alert")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resolved": id})
}

func (s *Server) handleAnalyticsSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sources": s.analytics.SourceHealthScores()})
}

func (s *Server) handleAnalyticsErrors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"taxonomy": s.analytics.Taxonomy(),
		"counts":   s.analytics.ErrorBreakdown(),
	})
}

func (s *Server) handleAnalyticsCostRouting(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.analytics.CostRoutingView())
}

func (s *Server) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Summary any `json:"summary"`
		Trends  any `json:"trends"`
	}{
		Summary: s.analytics.SummaryView(),
		Trends:  s.analytics.Trends(7),
	}
	writeJSON(w, http.StatusOK, resp)
}
