// Package httpadapter exposes the JSON API: ingestion control, job
// management, monitoring, analytics and the vendor/claim surface.
package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vendorgrid/internal/analytics"
	"vendorgrid/internal/ingest"
	"vendorgrid/internal/metrics"
	"vendorgrid/internal/monitor"
	"vendorgrid/internal/ports"
	claimsvc "vendorgrid/internal/services/claims"
	vendorsvc "vendorgrid/internal/services/vendors"
)

// Middleware guards the API routes. The default is a passthrough; real
// deployments inject their own authenticator.
type Middleware func(http.Handler) http.Handler

type Server struct {
	manager     *ingest.Manager
	monitor     *monitor.Service
	analytics   *analytics.Aggregator
	vendors     ports.Vendors
	claims      ports.Claims
	integration ports.Integration
	metrics     *metrics.Registry
	auth        Middleware
	logger      *slog.Logger
}

func New(manager *ingest.Manager, mon *monitor.Service, agg *analytics.Aggregator,
	vendors ports.Vendors, claims ports.Claims, integ ports.Integration,
	reg *metrics.Registry, auth Middleware, logger *slog.Logger) *Server {
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}
	return &Server{
		manager:     manager,
		monitor:     mon,
		analytics:   agg,
		vendors:     vendors,
		claims:      claims,
		integration: integ,
		metrics:     reg,
		auth:        auth,
		logger:      logger,
	}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.metrics.Middleware(func(req *http.Request) string {
		if rc := chi.RouteContext(req.Context()); rc != nil {
			return rc.RoutePattern()
		}
		return req.URL.Path
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.auth)

		r.Get("/sources", s.handleSources)
		r.Post("/ingest/full", s.handleIngestFull)
		r.Post("/ingest/{sourceID}", s.handleIngestSource)

		r.Get("/jobs", s.handleJobs)
		r.Get("/jobs/{id}", s.handleJob)
		r.Post("/jobs/{id}/pause", s.handleJobPause)
		r.Post("/jobs/{id}/resume", s.handleJobResume)

		r.Get("/monitoring/dashboard", s.handleDashboard)
		r.Get("/monitoring/alerts", s.handleAlerts)
		r.Get("/monitoring/metrics", s.handleMonitoringMetrics)
		r.Post("/monitoring/alerts/{id}/resolve", s.handleResolveAlert)

		r.Get("/analytics/sources", s.handleAnalyticsSources)
		r.Get("/analytics/errors", s.handleAnalyticsErrors)
		r.Get("/analytics/cost-routing", s.handleAnalyticsCostRouting)
		r.Get("/analytics/summary", s.handleAnalyticsSummary)

		r.Get("/vendors", s.handleVendorList)
		r.Post("/vendors", s.handleVendorCreate)
		r.Get("/vendors/search", s.handleVendorSearch)
		r.Get("/vendors/export.csv", s.handleVendorExport)
		r.Post("/vendors/import", s.handleVendorImport)
		r.Get("/vendors/{id}", s.handleVendorGet)
		r.Put("/vendors/{id}", s.handleVendorUpdate)
		r.Delete("/vendors/{id}", s.handleVendorDelete)
		r.Get("/vendors/{id}/provenance", s.handleVendorProvenance)

		r.Post("/claims/initiate", s.handleClaimInitiate)
		r.Post("/claims/verify", s.handleClaimVerify)
	})

	// The integration surface authenticates with its own API keys
	// instead of the injected middleware.
	r.Route("/integration", func(r chi.Router) {
		r.Get("/health", s.handleIntegrationHealth)
		r.Post("/auth/validate", s.handleIntegrationValidateKey)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAPIKey)
			r.Get("/vendors", s.handleIntegrationVendors)
			r.Get("/vendors/changes", s.handleIntegrationChanges)
			r.Post("/webhooks/test", s.handleWebhookTest)
		})
	})

	return r
}

// errorResponse is the uniform failure envelope.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func writeJSONError(w http.ResponseWriter, status int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// writeError maps service errors onto status codes and the failure
// envelope.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var ve vendorsvc.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSONError(w, http.StatusBadRequest, "validation_error", ve.Error())
	case errors.Is(err, claimsvc.ErrInvalidEmail):
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, ports.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ports.ErrDuplicateIdentifier):
		writeJSONError(w, http.StatusConflict, "duplicate_identifier", err.Error())
	case errors.Is(err, ports.ErrTokenClaimed):
		writeJSONError(w, http.StatusConflict, "token_claimed", err.Error())
	case errors.Is(err, ports.ErrTokenExpired):
		writeJSONError(w, http.StatusGone, "token_expired", err.Error())
	case errors.Is(err, ports.ErrTokenExhausted):
		writeJSONError(w, http.StatusTooManyRequests, "token_exhausted", err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if snap, ok := s.monitor.Latest(); ok {
		resp["metrics"] = snap
	}
	writeJSON(w, http.StatusOK, resp)
}
