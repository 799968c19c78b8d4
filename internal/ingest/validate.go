package ingest

import (
	"strings"

	"vendorgrid/internal/domain"
)

// Rule is one validation check against a canonical record.
type Rule struct {
	Field   string
	Message string
	Check   func(domain.BusinessRecord) bool
}

// InvalidRecord pairs a rejected record with the rules it failed.
type InvalidRecord struct {
	Record domain.BusinessRecord
	Errors []string
}

// Validator partitions canonical records into valid and invalid. Invalid
// records are dropped from later pipeline stages; there is no quarantine
// store.
type Validator struct {
	rules []Rule
}

// NewValidator builds a validator with the default rule set: companyName
// and businessIdentifier are required. Addresses are defaulted during
// normalization and are deliberately not re-checked here.
func NewValidator(extra ...Rule) *Validator {
	rules := []Rule{
		{
			Field:   "companyName",
			Message: "company name is required",
			Check: func(r domain.BusinessRecord) bool {
				return strings.TrimSpace(r.CompanyName) != ""
			},
		},
		{
			Field:   "businessIdentifier",
			Message: "business identifier is required",
			Check: func(r domain.BusinessRecord) bool {
				return strings.TrimSpace(r.BusinessIdentifier) != ""
			},
		},
	}
	return &Validator{rules: append(rules, extra...)}
}

// Partition applies every rule to every record.
func (v *Validator) Partition(records []domain.BusinessRecord) (valid []domain.BusinessRecord, invalid []InvalidRecord) {
	for _, rec := range records {
		var errs []string
		for _, rule := range v.rules {
			if !rule.Check(rec) {
				errs = append(errs, rule.Message)
			}
		}
		if len(errs) > 0 {
			invalid = append(invalid, InvalidRecord{Record: rec, Errors: errs})
			continue
		}
		valid = append(valid, rec)
	}
	return valid, invalid
}
