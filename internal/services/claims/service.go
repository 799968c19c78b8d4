// Package claims runs the stub-profile claim workflow: a token is issued
// for a profile, delivered out of band, and later redeemed exactly once
// to transfer ownership.
package claims

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"vendorgrid/internal/domain"
	"vendorgrid/internal/ports"
)

const (
	tokenTTL    = 24 * time.Hour
	maxAttempts = 5
	tokenBytes  = 32
)

// ErrInvalidEmail rejects contact addresses that cannot receive the
// token.
var ErrInvalidEmail = errors.New("invalid contact email")

type Service struct {
	tokens  ports.ClaimRepository
	vendors ports.VendorRepository
	now     func() time.Time
}

func New(tokens ports.ClaimRepository, vendors ports.VendorRepository) *Service {
	return &Service{tokens: tokens, vendors: vendors, now: time.Now}
}

// SetClock injects a clock for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// HashToken maps a raw token to its stored form. Only the hash ever
// reaches the database.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Initiate issues a claim token for the vendor profile. Already-claimed
// profiles are rejected with ErrTokenClaimed.
func (s *Service) Initiate(ctx context.Context, vendorID, email string) (string, time.Time, error) {
	if !strings.Contains(email, "@") {
		return "", time.Time{}, ErrInvalidEmail
	}
	p, err := s.vendors.GetByID(ctx, vendorID)
	if err != nil {
		return "", time.Time{}, err
	}
	if p.VerificationStatus == domain.VerificationClaimed {
		return "", time.Time{}, ports.ErrTokenClaimed
	}

	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, fmt.Errorf("generate claim token: %w", err)
	}
	raw := hex.EncodeToString(buf)
	expiresAt := s.now().Add(tokenTTL)

	err = s.tokens.CreateToken(ctx, domain.ClaimToken{
		TokenHash:   HashToken(raw),
		VendorID:    vendorID,
		Email:       email,
		ExpiresAt:   expiresAt,
		MaxAttempts: maxAttempts,
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return raw, expiresAt, nil
}

// Verify redeems a raw token, associating the profile with userID.
func (s *Service) Verify(ctx context.Context, rawToken, userID string) (domain.VendorProfile, error) {
	if rawToken == "" || userID == "" {
		return domain.VendorProfile{}, ports.ErrNotFound
	}
	return s.tokens.Redeem(ctx, HashToken(rawToken), userID)
}
