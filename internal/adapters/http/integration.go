package httpadapter

import (
	"net/http"
	"strconv"
	"time"
)

// requireAPIKey guards the data-bearing integration endpoints. Keys
// travel in X-API-Key and are checked by the integration service.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "API key required")
			return
		}
		if v := s.integration.ValidateKey(key); !v.Valid {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", v.Message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleIntegrationVendors(w http.ResponseWriter, r *http.Request) {
	items, err := s.vendors.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vendors": items, "total": len(items)})
}

func (s *Server) handleIntegrationChanges(w http.ResponseWriter, r *http.Request) {
	sinceParam := r.URL.Query().Get("since")
	if sinceParam == "" {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "since query parameter is required")
		return
	}
	since, err := time.Parse(time.RFC3339, sinceParam)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid since timestamp: "+err.Error())
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	feed, err := s.integration.Changes(r.Context(), since, page, pageSize)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

func (s *Server) handleIntegrationHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.integration.Health(r.Context()))
}

type keyValidateRequest struct {
	APIKey string `json:"apiKey"`
}

func (s *Server) handleIntegrationValidateKey(w http.ResponseWriter, r *http.Request) {
	var req keyValidateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.integration.ValidateKey(req.APIKey))
}

type webhookTestRequest struct {
	TestMessage string `json:"testMessage"`
}

// handleWebhookTest lets external systems confirm connectivity without a
// configured webhook URL.
func (s *Server) handleWebhookTest(w http.ResponseWriter, r *http.Request) {
	var req webhookTestRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
			return
		}
	}
	msg := req.TestMessage
	if msg == "" {
		msg = "webhook test successful"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"message":   msg,
		"timestamp": time.Now().UTC(),
	})
}
