package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendorgrid/internal/domain"
)

func TestPartition(t *testing.T) {
	v := NewValidator()
	records := []domain.BusinessRecord{
		{CompanyName: "Acme Inc.", BusinessIdentifier: "111"},
		{CompanyName: "", BusinessIdentifier: "222"},
		{CompanyName: "No Number Co."},
		{CompanyName: "  ", BusinessIdentifier: "  "},
	}

	valid, invalid := v.Partition(records)

	require.Len(t, valid, 1)
	assert.Equal(t, "Acme Inc.", valid[0].CompanyName)

	require.Len(t, invalid, 3)
	assert.Equal(t, []string{"company name is required"}, invalid[0].Errors)
	assert.Equal(t, []string{"business identifier is required"}, invalid[1].Errors)
	assert.Len(t, invalid[2].Errors, 2, "blank record fails both rules")
}

func TestPartitionExtraRules(t *testing.T) {
	v := NewValidator(Rule{
		Field:   "postalCode",
		Message: "postal code is required",
		Check: func(r domain.BusinessRecord) bool {
			return r.PostalCode != ""
		},
	})
	valid, invalid := v.Partition([]domain.BusinessRecord{
		{CompanyName: "A", BusinessIdentifier: "1", PostalCode: "M5V 2T6"},
		{CompanyName: "B", BusinessIdentifier: "2"},
	})
	assert.Len(t, valid, 1)
	require.Len(t, invalid, 1)
	assert.Equal(t, []string{"postal code is required"}, invalid[0].Errors)
}
