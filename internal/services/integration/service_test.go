package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendorgrid/internal/domain"
	"vendorgrid/internal/ports"
)

// feedRepo is a VendorRepository fake backed by a fixed profile slice.
type feedRepo struct {
	profiles []domain.VendorProfile
	err      error
}

func (r *feedRepo) GetByID(ctx context.Context, id string) (domain.VendorProfile, error) {
	return domain.VendorProfile{}, ports.ErrNotFound
}
func (r *feedRepo) GetByIdentifier(ctx context.Context, identifier string) (domain.VendorProfile, error) {
	return domain.VendorProfile{}, ports.ErrNotFound
}
func (r *feedRepo) List(ctx context.Context) ([]domain.VendorProfile, error) {
	return r.profiles, r.err
}
func (r *feedRepo) Create(ctx context.Context, p domain.VendorProfile) (domain.VendorProfile, error) {
	return p, nil
}
func (r *feedRepo) Update(ctx context.Context, p domain.VendorProfile) (domain.VendorProfile, error) {
	return p, nil
}
func (r *feedRepo) Delete(ctx context.Context, id string) (bool, error) { return false, nil }
func (r *feedRepo) Search(ctx context.Context, q ports.VendorSearch, page, pageSize int) ([]domain.VendorProfile, int, error) {
	return nil, 0, nil
}
func (r *feedRepo) Provenance(ctx context.Context, vendorID string) ([]domain.ProvenanceEntry, error) {
	return nil, nil
}
func (r *feedRepo) RecordAudit(ctx context.Context, vendorID, action, actor string) error {
	return nil
}
func (r *feedRepo) ChangedSince(ctx context.Context, since time.Time, limit, offset int) ([]domain.VendorProfile, int, error) {
	if r.err != nil {
		return nil, 0, r.err
	}
	var matched []domain.VendorProfile
	for _, p := range r.profiles {
		if p.UpdatedAt.After(since) {
			matched = append(matched, p)
		}
	}
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func profileAt(id string, created, updated time.Time) domain.VendorProfile {
	return domain.VendorProfile{ID: id, CompanyName: id, IsActive: true, CreatedAt: created, UpdatedAt: updated}
}

func TestChangesClassifiesCreatedAndUpdated(t *testing.T) {
	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	repo := &feedRepo{profiles: []domain.VendorProfile{
		profileAt("old", since.Add(-48*time.Hour), since.Add(-24*time.Hour)), // untouched, filtered out
		profileAt("edited", since.Add(-48*time.Hour), since.Add(time.Hour)),
		profileAt("fresh", since.Add(2*time.Hour), since.Add(2*time.Hour)),
	}}
	svc := New(repo)

	feed, err := svc.Changes(context.Background(), since, 1, 0)
	require.NoError(t, err)

	require.Len(t, feed.Changes, 2)
	assert.Equal(t, "edited", feed.Changes[0].VendorID)
	assert.Equal(t, "updated", feed.Changes[0].ChangeType)
	assert.Equal(t, "fresh", feed.Changes[1].VendorID)
	assert.Equal(t, "created", feed.Changes[1].ChangeType)
	assert.Equal(t, 2, feed.TotalChanges)
	assert.Equal(t, since, feed.SinceTimestamp)
	assert.Equal(t, defaultPageSize, feed.PageSize)
	assert.Equal(t, 1, feed.TotalPages)
}

func TestChangesPagination(t *testing.T) {
	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	repo := &feedRepo{}
	for i := 0; i < 5; i++ {
		repo.profiles = append(repo.profiles,
			profileAt(string(rune('a'+i)), since.Add(time.Hour), since.Add(time.Duration(i+1)*time.Hour)))
	}
	svc := New(repo)

	feed, err := svc.Changes(context.Background(), since, 2, 2)
	require.NoError(t, err)
	require.Len(t, feed.Changes, 2)
	assert.Equal(t, "c", feed.Changes[0].VendorID)
	assert.Equal(t, "d", feed.Changes[1].VendorID)
	assert.Equal(t, 5, feed.TotalChanges)
	assert.Equal(t, 3, feed.TotalPages)

	// Out-of-range sizes clamp.
	feed, err = svc.Changes(context.Background(), since, 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, feed.Page)
	assert.Equal(t, maxPageSize, feed.PageSize)
}

func TestChangesRepositoryError(t *testing.T) {
	svc := New(&feedRepo{err: errors.New("boom")})
	_, err := svc.Changes(context.Background(), time.Now(), 1, 10)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	newest := now.Add(-time.Hour)
	repo := &feedRepo{profiles: []domain.VendorProfile{
		profileAt("a", now.Add(-72*time.Hour), now.Add(-48*time.Hour)),
		profileAt("b", now.Add(-72*time.Hour), newest),
	}}
	svc := New(repo)
	svc.SetClock(func() time.Time { return now })

	h := svc.Health(context.Background())
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, 2, h.TotalVendors)
	require.NotNil(t, h.LastUpdated)
	assert.Equal(t, newest, *h.LastUpdated)
	assert.Equal(t, now, h.Timestamp)
}

func TestHealthDegradesOnRepositoryError(t *testing.T) {
	svc := New(&feedRepo{err: errors.New("db down")})
	h := svc.Health(context.Background())
	assert.Equal(t, "unhealthy", h.Status)
	assert.Zero(t, h.TotalVendors)
}

func TestValidateKey(t *testing.T) {
	svc := New(&feedRepo{})

	assert.True(t, svc.ValidateKey("key-1").Valid)
	assert.False(t, svc.ValidateKey("").Valid)
	assert.False(t, svc.ValidateKey("   ").Valid)
}
