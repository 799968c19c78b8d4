package httpadapter

import (
	"net/http"
	"time"
)

type claimInitiateRequest struct {
	VendorID string `json:"vendorId"`
	Email    string `json:"email"`
}

type claimInitiateResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type claimVerifyRequest struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

func (s *Server) handleClaimInitiate(w http.ResponseWriter, r *http.Request) {
	var req claimInitiateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return
	}
	if req.VendorID == "" || req.Email == "" {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "vendorId and email are required")
		return
	}
	token, expiresAt, err := s.claims.Initiate(r.Context(), req.VendorID, req.Email)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// The raw token appears in this response and nowhere else.
	writeJSON(w, http.StatusCreated, claimInitiateResponse{Token: token, ExpiresAt: expiresAt})
}

func (s *Server) handleClaimVerify(w http.ResponseWriter, r *http.Request) {
	var req claimVerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return
	}
	if req.Token == "" || req.UserID == "" {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "token and userId are required")
		return
	}
	profile, err := s.claims.Verify(r.Context(), req.Token, req.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
