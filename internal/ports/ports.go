package ports

import (
	"context"
	"time"

	"vendorgrid/internal/domain"
)

// VendorInput is the mutable subset of a vendor profile accepted from
// API callers.
type VendorInput struct {
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

// PagedVendors is a page of search results plus pagination metadata.
type PagedVendors struct {
	Items      []domain.VendorProfile `json:"items"`
	Total      int                    `json:"total"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"pageSize"`
	TotalPages int                    `json:"totalPages"`
}

// RowError reports one failed row of a CSV import.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ImportSummary is the outcome of a CSV import.
type ImportSummary struct {
	TotalRows    int        `json:"totalRows"`
	SuccessCount int        `json:"successCount"`
	ErrorCount   int        `json:"errorCount"`
	Errors       []RowError `json:"errors"`
}

// Vendors is the vendor CRUD/search/CSV surface.
type Vendors interface {
	Get(ctx context.Context, id string) (domain.VendorProfile, error)
	List(ctx context.Context) ([]domain.VendorProfile, error)
	Create(ctx context.Context, in VendorInput, actor string) (domain.VendorProfile, error)
	Update(ctx context.Context, id string, in VendorInput, actor string) (domain.VendorProfile, error)
	Delete(ctx context.Context, id string) (bool, error)
	Search(ctx context.Context, q VendorSearch, page, pageSize int) (PagedVendors, error)
	Provenance(ctx context.Context, vendorID string) ([]domain.ProvenanceEntry, error)
	ExportCSV(ctx context.Context) ([]byte, error)
	ImportCSV(ctx context.Context, csvData []byte, actor string) (ImportSummary, error)
}

// VendorChange is one entry of the delta feed external systems poll.
type VendorChange struct {
	VendorID   string               `json:"vendorId"`
	ChangeType string               `json:"changeType"` // created | updated
	Timestamp  time.Time            `json:"timestamp"`
	Vendor     domain.VendorProfile `json:"vendor"`
}

// ChangeFeed is a page of vendor changes since a timestamp.
type ChangeFeed struct {
	Changes        []VendorChange `json:"changes"`
	TotalChanges   int            `json:"totalChanges"`
	SinceTimestamp time.Time      `json:"sinceTimestamp"`
	Page           int            `json:"page"`
	PageSize       int            `json:"pageSize"`
	TotalPages     int            `json:"totalPages"`
}

// IntegrationHealth reports the integration surface's own health plus
// basic dataset figures.
type IntegrationHealth struct {
	Status       string     `json:"status"`
	Service      string     `json:"service"`
	Timestamp    time.Time  `json:"timestamp"`
	TotalVendors int        `json:"totalVendors"`
	LastUpdated  *time.Time `json:"lastUpdated,omitempty"`
}

// KeyValidation is the outcome of an API-key check.
type KeyValidation struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// Integration is the external-system surface: delta feed, key
// validation and a dedicated health check.
type Integration interface {
	Changes(ctx context.Context, since time.Time, page, pageSize int) (ChangeFeed, error)
	Health(ctx context.Context) IntegrationHealth
	ValidateKey(key string) KeyValidation
}

// Claims runs the stub-profile claim workflow.
type Claims interface {
	// Initiate issues a claim token for a vendor profile. The raw token
	// is returned exactly once; only its hash is stored.
	Initiate(ctx context.Context, vendorID, email string) (rawToken string, expiresAt time.Time, err error)

	// Verify consumes a token, associating the profile with userID. A
	// token can be redeemed at most once.
	Verify(ctx context.Context, rawToken, userID string) (domain.VendorProfile, error)
}
