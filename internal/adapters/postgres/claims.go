package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"vendorgrid/internal/domain"
	"vendorgrid/internal/ports"
)

// ClaimRepository

func (db *DB) CreateToken(ctx context.Context, token domain.ClaimToken) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO claim_tokens (token_hash, vendor_id, email, expires_at, max_attempts)
		VALUES ($1, $2, $3, $4, $5)
	`, token.TokenHash, token.VendorID, token.Email, token.ExpiresAt, token.MaxAttempts)
	return err
}

// Redeem consumes a claim token and transfers ownership of the profile.
// The token row is locked for the duration, so concurrent redemptions of
// the same token serialize and at most one succeeds. Failed attempts
// still increment the attempt counter.
func (db *DB) Redeem(ctx context.Context, tokenHash, userID string) (domain.VendorProfile, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return domain.VendorProfile{}, err
	}
	defer tx.Rollback(ctx)

	var t domain.ClaimToken
	err = tx.QueryRow(ctx, `
		SELECT vendor_id, email, expires_at, claimed_at, attempts, max_attempts
		FROM claim_tokens
		WHERE token_hash = $1
		FOR UPDATE
	`, tokenHash).Scan(&t.VendorID, &t.Email, &t.ExpiresAt, &t.ClaimedAt, &t.Attempts, &t.MaxAttempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.VendorProfile{}, ports.ErrNotFound
	}
	if err != nil {
		return domain.VendorProfile{}, err
	}

	fail := func(cause error) (domain.VendorProfile, error) {
		if _, err := tx.Exec(ctx, `
			UPDATE claim_tokens SET attempts = attempts + 1 WHERE token_hash = $1
		`, tokenHash); err != nil {
			return domain.VendorProfile{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return domain.VendorProfile{}, err
		}
		return domain.VendorProfile{}, cause
	}

	switch {
	case t.ClaimedAt != nil:
		return fail(ports.ErrTokenClaimed)
	case t.Exhausted():
		return fail(ports.ErrTokenExhausted)
	case t.Expired(time.Now()):
		return fail(ports.ErrTokenExpired)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE claim_tokens SET claimed_at = now(), attempts = attempts + 1
		WHERE token_hash = $1
	`, tokenHash); err != nil {
		return domain.VendorProfile{}, err
	}

	profile, err := scanVendor(tx.QueryRow(ctx, `
		UPDATE vendors SET
			owner_user_id = $2,
			verification_status = $3,
			claimed_at = now(),
			updated_at = now()
		WHERE id = $1
		RETURNING `+vendorColumns+`
	`, t.VendorID, userID, domain.VerificationClaimed))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.VendorProfile{}, ports.ErrNotFound
	}
	if err != nil {
		return domain.VendorProfile{}, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO audit_log (vendor_id, action, actor)
		VALUES ($1, 'claimed', $2)
	`, t.VendorID, userID); err != nil {
		return domain.VendorProfile{}, err
	}

	return profile, tx.Commit(ctx)
}
