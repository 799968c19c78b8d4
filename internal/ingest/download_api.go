package ingest

import (
	"context"
	"net/http"
	"time"

	"vendorgrid/internal/catalog"
)

// APIDownloader fetches a JSON endpoint. Any non-2xx status is a failure;
// array bodies count as N records, object or scalar bodies as one.
type APIDownloader struct {
	client *http.Client
}

func NewAPIDownloader(timeout time.Duration) *APIDownloader {
	return &APIDownloader{client: newHTTPClient(timeout)}
}

func (d *APIDownloader) Fetch(ctx context.Context, src catalog.Source) DownloadResult {
	body, _, err := fetchBytes(ctx, d.client, src.URL, "application/json")
	if err != nil {
		return failure(src.ID, err.Error())
	}
	records, processed, err := parseJSONRecords(body)
	if err != nil {
		return failure(src.ID, "parse json: "+err.Error())
	}
	return DownloadResult{
		Source:           src.ID,
		Success:          true,
		RecordsProcessed: processed,
		Records:          records,
	}
}
