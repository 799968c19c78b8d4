package ports

import (
	"context"
	"time"

	"vendorgrid/internal/domain"
)

// VendorSearch holds the optional case-insensitive partial-match filters.
// Provided fields are OR-combined.
type VendorSearch struct {
	Name       string
	Identifier string
	Address    string
	Email      string
}

// VendorRepository stores vendor profiles and their audit trail.
type VendorRepository interface {
	GetByID(ctx context.Context, id string) (domain.VendorProfile, error)
	GetByIdentifier(ctx context.Context, identifier string) (domain.VendorProfile, error)
	List(ctx context.Context) ([]domain.VendorProfile, error)
	Create(ctx context.Context, p domain.VendorProfile) (domain.VendorProfile, error)
	Update(ctx context.Context, p domain.VendorProfile) (domain.VendorProfile, error)
	Delete(ctx context.Context, id string) (bool, error)
	Search(ctx context.Context, q VendorSearch, page, pageSize int) (items []domain.VendorProfile, total int, err error)
	Provenance(ctx context.Context, vendorID string) ([]domain.ProvenanceEntry, error)

	// ChangedSince lists active vendors whose updated_at is after since,
	// oldest change first, plus the total match count for pagination.
	ChangedSince(ctx context.Context, since time.Time, limit, offset int) (items []domain.VendorProfile, total int, err error)

	// RecordAudit appends an immutable audit-log row for the vendor.
	RecordAudit(ctx context.Context, vendorID, action, actor string) error
}

// ImportStore is the persistence contract the ingestion pipeline consumes.
// ImportRecord is upsert-if-absent: an existing profile with the same
// business identifier is left untouched (claim edits are never clobbered
// by a re-run); a new profile is created as an unclaimed stub together
// with its provenance and audit rows, all in one transaction.
type ImportStore interface {
	ImportRecord(ctx context.Context, rec domain.BusinessRecord, sourceName string) (created bool, err error)
}

// ClaimRepository stores claim tokens and performs the single-use
// redemption.
type ClaimRepository interface {
	CreateToken(ctx context.Context, token domain.ClaimToken) error

	// Redeem verifies and consumes the token atomically. Failures
	// (ErrNotFound, ErrTokenExpired, ErrTokenClaimed, ErrTokenExhausted)
	// record the attempt but leave the profile untouched; success sets
	// the owner, marks the profile claimed and stamps the token.
	Redeem(ctx context.Context, tokenHash, userID string) (domain.VendorProfile, error)
}
