package ingest

import "vendorgrid/internal/domain"

// dedupKey prefers the business identifier; records without one fall back
// to companyName+address.
func dedupKey(r domain.BusinessRecord) string {
	if r.BusinessIdentifier != "" {
		return "id:" + r.BusinessIdentifier
	}
	return "na:" + r.CompanyName + "|" + r.Address
}

// Dedupe collapses records sharing a dedup key, keeping whichever record
// has more non-empty fields; ties keep the first-seen record. Output
// preserves first-seen order. The batch is only deduplicated against
// itself; already-persisted profiles are handled by the identifier lookup
// in the persistence adapter.
func Dedupe(records []domain.BusinessRecord) []domain.BusinessRecord {
	type slot struct {
		index int
		rec   domain.BusinessRecord
	}
	seen := make(map[string]*slot, len(records))
	var order []string

	for _, rec := range records {
		key := dedupKey(rec)
		existing, ok := seen[key]
		if !ok {
			seen[key] = &slot{index: len(order), rec: rec}
			order = append(order, key)
			continue
		}
		if rec.FieldCount() > existing.rec.FieldCount() {
			existing.rec = rec
		}
	}

	out := make([]domain.BusinessRecord, 0, len(order))
	for _, key := range order {
		out = append(out, seen[key].rec)
	}
	return out
}
