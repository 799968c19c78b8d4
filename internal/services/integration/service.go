// Package integration exposes vendor data to external systems: a
// timestamp-based change feed for delta synchronization, webhook
// notifications on vendor mutations, API-key validation and a dedicated
// health check.
package integration

import (
	"context"
	"strings"
	"time"

	"vendorgrid/internal/ports"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100

	serviceName = "VendorGrid Integration"
)

type Service struct {
	repo ports.VendorRepository
	now  func() time.Time
}

func New(repo ports.VendorRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// SetClock overrides the service clock. Tests use this.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Changes returns the vendors changed after since, oldest first. A row
// created after the cutoff reports "created", anything else "updated";
// deactivations drop out of the feed rather than reporting a delete.
func (s *Service) Changes(ctx context.Context, since time.Time, page, pageSize int) (ports.ChangeFeed, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, total, err := s.repo.ChangedSince(ctx, since, pageSize, (page-1)*pageSize)
	if err != nil {
		return ports.ChangeFeed{}, err
	}

	changes := make([]ports.VendorChange, 0, len(items))
	for _, p := range items {
		changeType := "updated"
		if p.CreatedAt.After(since) {
			changeType = "created"
		}
		changes = append(changes, ports.VendorChange{
			VendorID:   p.ID,
			ChangeType: changeType,
			Timestamp:  p.UpdatedAt,
			Vendor:     p,
		})
	}

	feed := ports.ChangeFeed{
		Changes:        changes,
		TotalChanges:   total,
		SinceTimestamp: since,
		Page:           page,
		PageSize:       pageSize,
	}
	feed.TotalPages = (total + pageSize - 1) / pageSize
	return feed, nil
}

// Health reports the integration surface's status with dataset figures.
// A repository failure degrades the status instead of erroring, so the
// endpoint always answers.
func (s *Service) Health(ctx context.Context) ports.IntegrationHealth {
	h := ports.IntegrationHealth{
		Status:    "healthy",
		Service:   serviceName,
		Timestamp: s.now().UTC(),
	}
	vendors, err := s.repo.List(ctx)
	if err != nil {
		h.Status = "unhealthy"
		return h
	}
	h.TotalVendors = len(vendors)
	for _, p := range vendors {
		if h.LastUpdated == nil || p.UpdatedAt.After(*h.LastUpdated) {
			t := p.UpdatedAt
			h.LastUpdated = &t
		}
	}
	return h
}

// ValidateKey checks an integration API key. Any non-blank key is
// accepted; swapping in a real key store only touches this method.
func (s *Service) ValidateKey(key string) ports.KeyValidation {
	if strings.TrimSpace(key) == "" {
		return ports.KeyValidation{Valid: false, Message: "invalid or missing API key"}
	}
	return ports.KeyValidation{Valid: true, Message: "API key is valid"}
}
