package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendorgrid/internal/analytics"
	"vendorgrid/internal/catalog"
	"vendorgrid/internal/domain"
	"vendorgrid/internal/ingest"
	"vendorgrid/internal/metrics"
	"vendorgrid/internal/monitor"
	"vendorgrid/internal/ports"
)

type stubVendors struct {
	profile domain.VendorProfile
	err     error
}

func (s *stubVendors) Get(ctx context.Context, id string) (domain.VendorProfile, error) {
	return s.profile, s.err
}
func (s *stubVendors) List(ctx context.Context) ([]domain.VendorProfile, error) {
	return []domain.VendorProfile{s.profile}, s.err
}
func (s *stubVendors) Create(ctx context.Context, in ports.VendorInput, actor string) (domain.VendorProfile, error) {
	if s.err != nil {
		return domain.VendorProfile{}, s.err
	}
	p := s.profile
	p.CompanyName = in.CompanyName
	return p, nil
}
func (s *stubVendors) Update(ctx context.Context, id string, in ports.VendorInput, actor string) (domain.VendorProfile, error) {
	return s.profile, s.err
}
func (s *stubVendors) Delete(ctx context.Context, id string) (bool, error) {
	return s.err == nil, s.err
}
func (s *stubVendors) Search(ctx context.Context, q ports.VendorSearch, page, pageSize int) (ports.PagedVendors, error) {
	return ports.PagedVendors{Items: []domain.VendorProfile{s.profile}, Total: 1, Page: 1, PageSize: 20, TotalPages: 1}, s.err
}
func (s *stubVendors) Provenance(ctx context.Context, vendorID string) ([]domain.ProvenanceEntry, error) {
	return nil, s.err
}
func (s *stubVendors) ExportCSV(ctx context.Context) ([]byte, error) {
	return []byte("name,tax_id,address,contact_email\n"), s.err
}
func (s *stubVendors) ImportCSV(ctx context.Context, csvData []byte, actor string) (ports.ImportSummary, error) {
	return ports.ImportSummary{TotalRows: 1, SuccessCount: 1}, s.err
}

type stubClaims struct {
	token string
	err   error
}

func (s *stubClaims) Initiate(ctx context.Context, vendorID, email string) (string, time.Time, error) {
	return s.token, time.Now().Add(24 * time.Hour), s.err
}
func (s *stubClaims) Verify(ctx context.Context, rawToken, userID string) (domain.VendorProfile, error) {
	if s.err != nil {
		return domain.VendorProfile{}, s.err
	}
	return domain.VendorProfile{ID: "v-1", VerificationStatus: domain.VerificationClaimed}, nil
}

type stubIntegration struct {
	feed ports.ChangeFeed
	err  error
}

func (s *stubIntegration) Changes(ctx context.Context, since time.Time, page, pageSize int) (ports.ChangeFeed, error) {
	if s.err != nil {
		return ports.ChangeFeed{}, s.err
	}
	feed := s.feed
	feed.SinceTimestamp = since
	return feed, nil
}
func (s *stubIntegration) Health(ctx context.Context) ports.IntegrationHealth {
	return ports.IntegrationHealth{Status: "healthy", Service: "VendorGrid Integration", Timestamp: time.Now()}
}
func (s *stubIntegration) ValidateKey(key string) ports.KeyValidation {
	if strings.TrimSpace(key) == "" {
		return ports.KeyValidation{Valid: false, Message: "invalid or missing API key"}
	}
	return ports.KeyValidation{Valid: true, Message: "API key is valid"}
}

type noopStore struct{}

func (noopStore) ImportRecord(ctx context.Context, rec domain.BusinessRecord, sourceName string) (bool, error) {
	return true, nil
}

func testServer(t *testing.T, vendors ports.Vendors, claims ports.Claims) *Server {
	t.Helper()
	cat := &catalog.Catalog{
		DefaultRateLimit: 100,
		Sources: []catalog.Source{
			{ID: "alpha", Name: "Alpha Registry", Type: catalog.TypeFile, Enabled: true},
			{ID: "off", Name: "Disabled Registry", Type: catalog.TypeFile, Enabled: false},
		},
	}
	reg := metrics.NewRegistry()
	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	manager := ingest.NewManager(cat, noopStore{}, reg, logger, ingest.Options{
		Retry: ingest.RetryConfig{MaxAttempts: 1},
	})
	mon := monitor.New(time.Minute, monitor.DefaultThresholds(),
		func(ctx context.Context) (monitor.Sample, error) {
			return monitor.Sample{APISuccessRate: 100, DataQualityScore: 100}, nil
		}, nil, reg, logger)
	agg := analytics.New(cat, manager.Jobs().History)
	if vendors == nil {
		vendors = &stubVendors{profile: domain.VendorProfile{ID: "v-1", CompanyName: "Acme Inc."}}
	}
	if claims == nil {
		claims = &stubClaims{token: "rawtoken"}
	}
	return New(manager, mon, agg, vendors, claims, &stubIntegration{}, reg, nil, logger)
}

func do(t *testing.T, s *Server, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, testServer(t, nil, nil), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, testServer(t, nil, nil), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSources(t *testing.T) {
	rec := do(t, testServer(t, nil, nil), http.MethodGet, "/sources", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Sources []catalog.SourceStatus `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sources, 2)
	assert.Equal(t, "alpha", resp.Sources[0].ID)
	assert.Equal(t, 100, resp.Sources[0].RateLimit)
}

func TestIngestUnknownSource(t *testing.T) {
	rec := do(t, testServer(t, nil, nil), http.MethodPost, "/ingest/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
	assert.Contains(t, rec.Body.String(), `"error":"not_found"`)
}

func TestIngestDisabledSource(t *testing.T) {
	rec := do(t, testServer(t, nil, nil), http.MethodPost, "/ingest/off", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "source_disabled")
}

func TestJobNotFound(t *testing.T) {
	rec := do(t, testServer(t, nil, nil), http.MethodGet, "/jobs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVendorCreate(t *testing.T) {
	rec := do(t, testServer(t, nil, nil), http.MethodPost, "/vendors",
		`{"companyName":"Acme Inc.","businessIdentifier":"111"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var p domain.VendorProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "Acme Inc.", p.CompanyName)
}

func TestVendorCreateBadJSON(t *testing.T) {
	rec := do(t, testServer(t, nil, nil), http.MethodPost, "/vendors", `{"companyName":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad_request")
}

func TestVendorNotFoundEnvelope(t *testing.T) {
	srv := testServer(t, &stubVendors{err: ports.ErrNotFound}, nil)
	rec := do(t, srv, http.MethodGet, "/vendors/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "not_found", resp.Error)
}

func TestVendorDuplicateConflict(t *testing.T) {
	srv := testServer(t, &stubVendors{err: ports.ErrDuplicateIdentifier}, nil)
	rec := do(t, srv, http.MethodPost, "/vendors", `{"companyName":"Acme"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "duplicate_identifier")
}

func TestVendorExportCSV(t *testing.T) {
	rec := do(t, testServer(t, nil, nil), http.MethodGet, "/vendors/export.csv", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "vendors.csv")
}

func TestClaimInitiate(t *testing.T) {
	rec := do(t, testServer(t, nil, nil), http.MethodPost, "/claims/initiate",
		`{"vendorId":"v-1","email":"owner@acme.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token":"rawtoken"`)
}

func TestClaimInitiateMissingFields(t *testing.T) {
	rec := do(t, testServer(t, nil, nil), http.MethodPost, "/claims/initiate", `{"vendorId":"v-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClaimVerifyErrors(t *testing.T) {
	cases := []struct {
		err      error
		wantCode int
		wantBody string
	}{
		{ports.ErrTokenClaimed, http.StatusConflict, "token_claimed"},
		{ports.ErrTokenExpired, http.StatusGone, "token_expired"},
		{ports.ErrTokenExhausted, http.StatusTooManyRequests, "token_exhausted"},
		{ports.ErrNotFound, http.StatusNotFound, "not_found"},
	}
	for _, tc := range cases {
		srv := testServer(t, nil, &stubClaims{err: tc.err})
		rec := do(t, srv, http.MethodPost, "/claims/verify", `{"token":"x","userId":"u"}`)
		assert.Equal(t, tc.wantCode, rec.Code, "error %v", tc.err)
		assert.Contains(t, rec.Body.String(), tc.wantBody)
	}
}

func TestClaimVerifySuccess(t *testing.T) {
	rec := do(t, testServer(t, nil, nil), http.MethodPost, "/claims/verify",
		`{"token":"rawtoken","userId":"user-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"verificationStatus":"claimed"`)
}

func TestMonitoringDashboard(t *testing.T) {
	rec := do(t, testServer(t, nil, nil), http.MethodGet, "/monitoring/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "activeAlerts")
}

func TestAnalyticsEndpoints(t *testing.T) {
	srv := testServer(t, nil, nil)
	for _, path := range []string{
		"/analytics/sources",
		"/analytics/errors",
		"/analytics/cost-routing",
		"/analytics/summary",
	} {
		rec := do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, "path %s", path)
	}
}

func doWithKey(t *testing.T, s *Server, method, path, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	return rec
}

func TestIntegrationRequiresAPIKey(t *testing.T) {
	srv := testServer(t, nil, nil)

	rec := do(t, srv, http.MethodGet, "/integration/vendors", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")

	rec = doWithKey(t, srv, http.MethodGet, "/integration/vendors", "key-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"vendors"`)
}

func TestIntegrationHealthNeedsNoKey(t *testing.T) {
	rec := do(t, testServer(t, nil, nil), http.MethodGet, "/integration/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestIntegrationChanges(t *testing.T) {
	srv := testServer(t, nil, nil)

	rec := doWithKey(t, srv, http.MethodGet, "/integration/vendors/changes", "key-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "since is required")

	rec = doWithKey(t, srv, http.MethodGet, "/integration/vendors/changes?since=yesterday", "key-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid since timestamp")

	rec = doWithKey(t, srv, http.MethodGet, "/integration/vendors/changes?since=2026-08-01T00:00:00Z", "key-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var feed ports.ChangeFeed
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	assert.Equal(t, "2026-08-01T00:00:00Z", feed.SinceTimestamp.Format(time.RFC3339))
}

func TestIntegrationValidateKey(t *testing.T) {
	srv := testServer(t, nil, nil)

	rec := do(t, srv, http.MethodPost, "/integration/auth/validate", `{"apiKey":"key-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":true`)

	rec = do(t, srv, http.MethodPost, "/integration/auth/validate", `{"apiKey":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":false`)
}

func TestWebhookTest(t *testing.T) {
	rec := doWithKey(t, testServer(t, nil, nil), http.MethodPost, "/integration/webhooks/test", "key-1", `{"testMessage":"ping"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"ping"`)
}

func TestAuthMiddlewareIsApplied(t *testing.T) {
	deny := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "missing credentials")
		})
	}
	base := testServer(t, nil, nil)
	srv := New(base.manager, base.monitor, base.analytics, base.vendors, base.claims, base.integration, base.metrics, deny, base.logger)

	rec := do(t, srv, http.MethodGet, "/vendors", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code, "health is outside the auth guard")
}
