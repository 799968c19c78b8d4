// Package catalog loads the static data-source catalog. Sources are read
// once at startup and are immutable for the lifetime of the process.
package catalog

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Source types.
const (
	TypeFile = "file"
	TypeAPI  = "api"
	TypeWeb  = "web"
)

// Source describes one external registry: where to fetch it, how fast we
// may hit it, and how its field names map onto the canonical record.
type Source struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Type    string `yaml:"type"`
	Enabled bool   `yaml:"enabled"`

	// RateLimit is the per-minute request budget for this source.
	// Zero means the catalog default applies.
	RateLimit int `yaml:"rate_limit"`

	// FieldMapping maps each canonical field name to a priority-ordered
	// list of candidate source column names. Resolution walks the list in
	// order; the first candidate present in a raw record wins.
	FieldMapping map[string][]string `yaml:"field_mapping"`

	// Selectors are CSS selectors for web sources. When empty the scraper
	// falls back to its table/definition-list heuristic.
	Selectors WebSelectors `yaml:"selectors"`

	// MaxPages bounds web-source pagination. Zero means single page.
	MaxPages int `yaml:"max_pages"`

	// CostPerRecord feeds the analytics cost-routing view. Government
	// registries are mostly free, so zero is the norm.
	CostPerRecord float64 `yaml:"cost_per_record"`
}

// WebSelectors declares where records live in a scraped page.
type WebSelectors struct {
	Row        string `yaml:"row"`
	Name       string `yaml:"name"`
	Identifier string `yaml:"identifier"`
	Address    string `yaml:"address"`
}

// Catalog is the full set of configured sources.
type Catalog struct {
	DefaultRateLimit int      `yaml:"default_rate_limit"`
	Sources          []Source `yaml:"sources"`
}

// DefaultCatalog returns an empty catalog with sane defaults.
func DefaultCatalog() *Catalog {
	return &Catalog{DefaultRateLimit: 30}
}

// LoadFromFile loads a catalog from a YAML file.
func LoadFromFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}
	c := DefaultCatalog()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the catalog for structural errors.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		if s.ID == "" {
			return fmt.Errorf("source %d: id is required", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("source %q: duplicate id", s.ID)
		}
		seen[s.ID] = true
		if s.URL == "" {
			return fmt.Errorf("source %q: url is required", s.ID)
		}
		switch s.Type {
		case TypeFile, TypeAPI, TypeWeb:
		default:
			return fmt.Errorf("source %q: unknown type %q", s.ID, s.Type)
		}
		if s.RateLimit < 0 {
			return fmt.Errorf("source %q: rate_limit must be non-negative", s.ID)
		}
	}
	return nil
}

// ByID returns the source with the given id.
func (c *Catalog) ByID(id string) (Source, bool) {
	for _, s := range c.Sources {
		if s.ID == id {
			return s, true
		}
	}
	return Source{}, false
}

// Enabled returns the enabled sources in catalog order.
func (c *Catalog) Enabled() []Source {
	out := make([]Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// EffectiveRateLimit returns the source's rate limit, falling back to the
// catalog default.
func (c *Catalog) EffectiveRateLimit(s Source) int {
	if s.RateLimit > 0 {
		return s.RateLimit
	}
	return c.DefaultRateLimit
}

// SourceStatus is the catalog view the dashboard lists: configuration plus
// the most recent sync outcome.
type SourceStatus struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Enabled    bool       `json:"enabled"`
	RateLimit  int        `json:"rateLimit"`
	LastSyncAt *time.Time `json:"lastSyncAt,omitempty"`
	LastStatus string     `json:"lastStatus,omitempty"`
}
