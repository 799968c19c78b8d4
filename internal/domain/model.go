package domain

import "time"

// Core domain models used internally. HTTP response shapes live in the
// http adapter; keep these decoupled where helpful.

// RawRecord is a source-native key-value row. It is ephemeral and is
// discarded once it has been mapped into a BusinessRecord.
type RawRecord map[string]string

// BusinessRecord is the canonical shape every source is mapped into
// before validation, deduplication and persistence.
type BusinessRecord struct {
	CompanyName        string `json:"companyName"`
	BusinessIdentifier string `json:"businessIdentifier"`
	Address            string `json:"address"`
	City               string `json:"city"`
	Province           string `json:"province"`
	PostalCode         string `json:"postalCode"`
	Phone              string `json:"phone"`
	Email              string `json:"email"`
	Website            string `json:"website"`
}

// FieldCount returns how many canonical fields are non-empty. Used by the
// deduplicator's completeness heuristic.
func (r BusinessRecord) FieldCount() int {
	n := 0
	for _, f := range r.Fields() {
		if f.Value != "" {
			n++
		}
	}
	return n
}

// Fields returns the canonical field names and values in a stable order.
// Empty fields are included; callers filter as needed.
func (r BusinessRecord) Fields() []Field {
	return []Field{
		{"companyName", r.CompanyName},
		{"businessIdentifier", r.BusinessIdentifier},
		{"address", r.Address},
		{"city", r.City},
		{"province", r.Province},
		{"postalCode", r.PostalCode},
		{"phone", r.Phone},
		{"email", r.Email},
		{"website", r.Website},
	}
}

// Field is a named canonical field value.
type Field struct {
	Name  string
	Value string
}

// Verification states for a vendor profile.
const (
	VerificationUnverified = "unverified"
	VerificationClaimed    = "claimed"
)

// VendorProfile is the persisted superset of a BusinessRecord. Profiles
// created by ingestion start as unclaimed stubs (OwnerUserID nil) and may
// later be claimed through the token workflow.
type VendorProfile struct {
	ID                 string     `json:"id"`
	CompanyName        string     `json:"companyName"`
	BusinessIdentifier string     `json:"businessIdentifier"`
	Address            string     `json:"address"`
	City               string     `json:"city"`
	Province           string     `json:"province"`
	PostalCode         string     `json:"postalCode"`
	Phone              string     `json:"phone"`
	Email              string     `json:"email"`
	Website            string     `json:"website"`
	OwnerUserID        *string    `json:"ownerUserId"`
	VerificationStatus string     `json:"verificationStatus"`
	DataSource         string     `json:"dataSource"`
	IsActive           bool       `json:"isActive"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
	ClaimedAt          *time.Time `json:"claimedAt,omitempty"`
}

// Record returns the canonical business-record view of the profile.
func (p VendorProfile) Record() BusinessRecord {
	return BusinessRecord{
		CompanyName:        p.CompanyName,
		BusinessIdentifier: p.BusinessIdentifier,
		Address:            p.Address,
		City:               p.City,
		Province:           p.Province,
		PostalCode:         p.PostalCode,
		Phone:              p.Phone,
		Email:              p.Email,
		Website:            p.Website,
	}
}

// ProvenanceEntry records which external source supplied a field's value
// and by what method.
type ProvenanceEntry struct {
	ID        string    `json:"id"`
	VendorID  string    `json:"vendorId"`
	FieldName string    `json:"fieldName"`
	Source    string    `json:"source"`
	Method    string    `json:"method"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuditEntry is an append-only audit-log row.
type AuditEntry struct {
	ID        string    `json:"id"`
	VendorID  string    `json:"vendorId"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Immutable bool      `json:"immutable"`
	CreatedAt time.Time `json:"createdAt"`
}

// ClaimToken links a pending claim to a vendor profile. Only the SHA-256
// hash of the raw token is stored; the raw token is returned once at
// initiation and never persisted.
type ClaimToken struct {
	TokenHash   string     `json:"-"`
	VendorID    string     `json:"vendorId"`
	Email       string     `json:"email"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	ClaimedAt   *time.Time `json:"claimedAt,omitempty"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"maxAttempts"`
}

// Expired reports whether the token's TTL has elapsed at t.
func (c ClaimToken) Expired(t time.Time) bool { return t.After(c.ExpiresAt) }

// Exhausted reports whether the attempt budget has been used up.
func (c ClaimToken) Exhausted() bool { return c.Attempts >= c.MaxAttempts }
