package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
default_rate_limit: 45
sources:
  - id: federal
    name: Federal Registry
    url: https://registry.example.gov/export.csv
    type: file
    enabled: true
    rate_limit: 60
    field_mapping:
      companyName: [corporation_name, legal_name]
  - id: municipal
    name: Municipal Directory
    url: https://directory.example.city/businesses
    type: web
    enabled: false
    max_pages: 10
    selectors:
      row: "table tr"
      name: "td.name"
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	cat, err := LoadFromFile(writeCatalog(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 45, cat.DefaultRateLimit)
	require.Len(t, cat.Sources, 2)

	fed, ok := cat.ByID("federal")
	require.True(t, ok)
	assert.Equal(t, TypeFile, fed.Type)
	assert.Equal(t, []string{"corporation_name", "legal_name"}, fed.FieldMapping["companyName"])

	mun, _ := cat.ByID("municipal")
	assert.Equal(t, "table tr", mun.Selectors.Row)
	assert.Equal(t, 10, mun.MaxPages)

	enabled := cat.Enabled()
	require.Len(t, enabled, 1)
	assert.Equal(t, "federal", enabled[0].ID)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		catalog Catalog
		wantErr string
	}{
		{
			name:    "missing id",
			catalog: Catalog{Sources: []Source{{URL: "https://x", Type: TypeFile}}},
			wantErr: "id is required",
		},
		{
			name: "duplicate id",
			catalog: Catalog{Sources: []Source{
				{ID: "a", URL: "https://x", Type: TypeFile},
				{ID: "a", URL: "https://y", Type: TypeAPI},
			}},
			wantErr: "duplicate id",
		},
		{
			name:    "missing url",
			catalog: Catalog{Sources: []Source{{ID: "a", Type: TypeFile}}},
			wantErr: "url is required",
		},
		{
			name:    "unknown type",
			catalog: Catalog{Sources: []Source{{ID: "a", URL: "https://x", Type: "ftp"}}},
			wantErr: "unknown type",
		},
		{
			name:    "negative rate limit",
			catalog: Catalog{Sources: []Source{{ID: "a", URL: "https://x", Type: TypeFile, RateLimit: -1}}},
			wantErr: "rate_limit",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.catalog.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestEffectiveRateLimit(t *testing.T) {
	cat := Catalog{DefaultRateLimit: 30}
	assert.Equal(t, 60, cat.EffectiveRateLimit(Source{RateLimit: 60}))
	assert.Equal(t, 30, cat.EffectiveRateLimit(Source{}))
}
