package ingest

import (
	"context"
	"net/http"
	"time"

	"vendorgrid/internal/catalog"
	"vendorgrid/internal/domain"
)

// DownloadResult is the per-source-run outcome. It is append-only: once a
// run finishes the result is recorded and never updated.
type DownloadResult struct {
	Source           string    `json:"source"`
	RecordsProcessed int       `json:"recordsProcessed"`
	RecordsSaved     int       `json:"recordsSaved"`
	Errors           []string  `json:"errors,omitempty"`
	DownloadTimeMs   int64     `json:"downloadTimeMs"`
	Success          bool      `json:"success"`
	FinishedAt       time.Time `json:"finishedAt"`

	// Records carries the extracted raw rows into the pipeline. Not part
	// of the serialized outcome.
	Records []domain.RawRecord `json:"-"`
}

func failure(source string, msgs ...string) DownloadResult {
	return DownloadResult{Source: source, Success: false, Errors: msgs}
}

// Downloader fetches raw records from one source. Implementations catch
// everything at the top level and report failures inside the result;
// callers must not expect errors to propagate.
type Downloader interface {
	Fetch(ctx context.Context, src catalog.Source) DownloadResult
}

const defaultRequestTimeout = 15 * time.Second

// newHTTPClient builds the shared client with an explicit per-request
// timeout. The upstream registries are slow but not that slow.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}
