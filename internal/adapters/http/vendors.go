package httpadapter

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vendorgrid/internal/ports"
)

// maxImportBytes caps the CSV import body.
const maxImportBytes = 16 << 20

// actor identifies the API caller in audit rows. Auth middleware can set
// the X-Actor header; absent that, changes are attributed to "api".
func actor(r *http.Request) string {
	if a := r.Header.Get("X-Actor"); a != "" {
		return a
	}
	return "api"
}

func (s *Server) handleVendorList(w http.ResponseWriter, r *http.Request) {
	items, err := s.vendors.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vendors": items, "total": len(items)})
}

func (s *Server) handleVendorGet(w http.ResponseWriter, r *http.Request) {
	p, err := s.vendors.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleVendorCreate(w http.ResponseWriter, r *http.Request) {
	var in ports.VendorInput
	if err := decodeJSON(r, &in); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return
	}
	p, err := s.vendors.Create(r.Context(), in, actor(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleVendorUpdate(w http.ResponseWriter, r *http.Request) {
	var in ports.VendorInput
	if err := decodeJSON(r, &in); err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return
	}
	p, err := s.vendors.Update(r.Context(), chi.URLParam(r, "id"), in, actor(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleVendorDelete(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.vendors.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !deleted {
		writeJSONError(w, http.StatusNotFound, "not_found", "unknown vendor")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVendorSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := ports.VendorSearch{
		Name:       q.Get("name"),
		Identifier: q.Get("identifier"),
		Address:    q.Get("address"),
		Email:      q.Get("email"),
	}
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	result, err := s.vendors.Search(r.Context(), search, page, pageSize)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleVendorExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.vendors.ExportCSV(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="vendors.csv"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleVendorImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", "read body: "+err.Error())
		return
	}
	summary, err := s.vendors.ImportCSV(r.Context(), body, actor(r))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	// Partial failures still return 200; per-row errors ride along.
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleVendorProvenance(w http.ResponseWriter, r *http.Request) {
	entries, err := s.vendors.Provenance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"provenance": entries})
}
