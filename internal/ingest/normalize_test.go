package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vendorgrid/internal/catalog"
	"vendorgrid/internal/domain"
)

func TestFormatPostalCode(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"m5v2t6", "M5V 2T6"},
		{"M5V 2T6", "M5V 2T6"},
		{"  m5v 2t6  ", "M5V 2T6"},
		{"M5V2T6", "M5V 2T6"},
		{"90210", "90210"},
		{" 90210 ", " 90210 "},
		{"SW1A 1AA", "SW1A 1AA"},
		{"", ""},
		{"M5V", "M5V"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatPostalCode(tc.in), "input %q", tc.in)
	}
}

func TestNormalizeCompanyName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Acme Incorporated", "Acme Inc."},
		{"Acme   Widgets  Limited", "Acme Widgets Ltd."},
		{"Acme Corporation", "Acme Corp."},
		{"Acme Company", "Acme Co."},
		{"Acme, Limitee", "Acme Ltee."},
		{"Acme Inc.", "Acme Inc."},
		{"Acme", "Acme"},
		{"", ""},
		{"Limited", "Limited"}, // a bare suffix word is left alone
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeCompanyName(tc.in), "input %q", tc.in)
	}
}

func TestNormalizeAddressDefault(t *testing.T) {
	assert.Equal(t, "Address not available", NormalizeAddress(""))
	assert.Equal(t, "Address not available", NormalizeAddress("   "))
	assert.Equal(t, "123 Main St", NormalizeAddress("  123  Main   St "))
}

func TestNormalizeWebsite(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://www.example.com/about", "example.com"},
		{"EXAMPLE.com", "example.com"},
		{"sub.shop.example.co.uk", "example.co.uk"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeWebsite(tc.in), "input %q", tc.in)
	}
}

func TestMapperFieldPriority(t *testing.T) {
	m := NewMapper(nil)
	src := catalog.Source{
		ID: "test",
		FieldMapping: map[string][]string{
			"companyName": {"legal_name", "name"},
		},
	}
	raw := domain.RawRecord{
		"name":       "Trading Name",
		"legal_name": "Legal Name Ltd.",
	}
	rec := m.Map(src, raw)
	assert.Equal(t, "Legal Name Ltd.", rec.CompanyName, "higher-priority candidate wins")
}

func TestMapperDefaultCandidatesAndFolding(t *testing.T) {
	m := NewMapper(nil)
	raw := domain.RawRecord{
		"Company Name":    "Acme Incorporated",
		"Business-Number": "123456789",
		"POSTAL_CODE":     "m5v2t6",
		"Email":           "Info@Acme.COM",
	}
	rec := m.Map(catalog.Source{ID: "test"}, raw)
	assert.Equal(t, "Acme Inc.", rec.CompanyName)
	assert.Equal(t, "123456789", rec.BusinessIdentifier)
	assert.Equal(t, "M5V 2T6", rec.PostalCode)
	assert.Equal(t, "info@acme.com", rec.Email)
	assert.Equal(t, "Address not available", rec.Address)
}

func TestMapperSkipsEmptyCandidates(t *testing.T) {
	m := NewMapper(nil)
	raw := domain.RawRecord{
		"company_name": "",
		"legal_name":   "Real Name",
	}
	rec := m.Map(catalog.Source{ID: "test"}, raw)
	assert.Equal(t, "Real Name", rec.CompanyName, "empty values do not shadow later candidates")
}
