package ingest

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"

	"vendorgrid/internal/catalog"
	"vendorgrid/internal/domain"
)

// canonicalFields is the resolution order for mapping raw records.
var canonicalFields = []string{
	"companyName", "businessIdentifier", "address", "city",
	"province", "postalCode", "phone", "email", "website",
}

// defaultCandidates are the fallback candidate keys per canonical field,
// in priority order, used when a source declares no mapping for a field.
var defaultCandidates = map[string][]string{
	"companyName":        {"company_name", "legal_name", "business_name", "name", "entity_name"},
	"businessIdentifier": {"business_number", "tax_id", "bn", "registry_id", "identifier", "corporation_number"},
	"address":            {"address", "street_address", "registered_office_address", "mailing_address"},
	"city":               {"city", "municipality", "locality"},
	"province":           {"province", "state", "region", "jurisdiction"},
	"postalCode":         {"postal_code", "postalcode", "postal", "zip", "zip_code"},
	"phone":              {"phone", "telephone", "phone_number"},
	"email":              {"email", "contact_email", "email_address"},
	"website":            {"website", "url", "web_site", "homepage"},
}

// Mapper maps raw records into the canonical BusinessRecord shape and
// applies the normalization rules. Candidate resolution is deterministic:
// the highest-priority candidate present in the record wins, and a record
// matching more than one candidate is logged rather than silently guessed
// at.
type Mapper struct {
	logger *slog.Logger
}

func NewMapper(logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{logger: logger}
}

// Map resolves each canonical field from raw using the source's declared
// mapping (falling back to the defaults) and normalizes the result.
func (m *Mapper) Map(src catalog.Source, raw domain.RawRecord) domain.BusinessRecord {
	// Index the raw keys once, case- and separator-insensitively.
	index := make(map[string]string, len(raw))
	for k, v := range raw {
		index[foldKey(k)] = v
	}

	resolved := make(map[string]string, len(canonicalFields))
	for _, field := range canonicalFields {
		candidates := src.FieldMapping[field]
		if len(candidates) == 0 {
			candidates = defaultCandidates[field]
		}
		value, matched := resolveField(index, candidates)
		if len(matched) > 1 {
			m.logger.Warn("ambiguous field mapping, using highest-priority candidate",
				slog.String("source", src.ID),
				slog.String("field", field),
				slog.Any("candidates", matched),
			)
		}
		resolved[field] = value
	}

	rec := domain.BusinessRecord{
		CompanyName:        NormalizeCompanyName(resolved["companyName"]),
		BusinessIdentifier: strings.TrimSpace(resolved["businessIdentifier"]),
		Address:            NormalizeAddress(resolved["address"]),
		City:               collapseWhitespace(resolved["city"]),
		Province:           collapseWhitespace(resolved["province"]),
		PostalCode:         FormatPostalCode(resolved["postalCode"]),
		Phone:              strings.TrimSpace(resolved["phone"]),
		Email:              strings.ToLower(strings.TrimSpace(resolved["email"])),
		Website:            NormalizeWebsite(resolved["website"]),
	}
	return rec
}

// resolveField walks candidates in priority order and returns the first
// present value plus every candidate that matched.
func resolveField(index map[string]string, candidates []string) (string, []string) {
	var value string
	var matched []string
	for _, cand := range candidates {
		if v, ok := index[foldKey(cand)]; ok && strings.TrimSpace(v) != "" {
			if len(matched) == 0 {
				value = v
			}
			matched = append(matched, cand)
		}
	}
	return value, matched
}

// foldKey lowercases and strips separators so "Company Name", "company_name"
// and "companyName" index identically.
func foldKey(k string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(k) {
		switch r {
		case ' ', '_', '-', '.':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// legalSuffixes canonicalizes long-form legal suffixes. Order matters:
// longer forms first so "Incorporated" is not matched as "Inc".
var legalSuffixes = []struct{ long, short string }{
	{"Incorporated", "Inc."},
	{"Corporation", "Corp."},
	{"Limited", "Ltd."},
	{"Company", "Co."},
	{"Incorporee", "Inc."},
	{"Limitee", "Ltee."},
}

// NormalizeCompanyName collapses whitespace and canonicalizes a trailing
// legal suffix.
func NormalizeCompanyName(name string) string {
	name = collapseWhitespace(name)
	if name == "" {
		return ""
	}
	for _, s := range legalSuffixes {
		if strings.EqualFold(name, s.long) {
			continue // the whole name is just a suffix word, leave it
		}
		if has, rest := trimSuffixFold(name, s.long); has {
			return strings.TrimSuffix(rest, ",") + " " + s.short
		}
	}
	return name
}

// trimSuffixFold removes suffix (case-insensitive, preceded by a space)
// from s and reports whether it did.
func trimSuffixFold(s, suffix string) (bool, string) {
	if len(s) <= len(suffix)+1 {
		return false, s
	}
	tail := s[len(s)-len(suffix):]
	if !strings.EqualFold(tail, suffix) || s[len(s)-len(suffix)-1] != ' ' {
		return false, s
	}
	return true, strings.TrimSpace(s[:len(s)-len(suffix)-1])
}

const addressFallback = "Address not available"

// NormalizeAddress collapses whitespace, substituting a fixed fallback for
// an empty address. The validator does not re-check addresses: defaulting
// here is the single mechanism.
func NormalizeAddress(addr string) string {
	addr = collapseWhitespace(addr)
	if addr == "" {
		return addressFallback
	}
	return addr
}

var canadianPostal = regexp.MustCompile(`^[A-Z][0-9][A-Z][0-9][A-Z][0-9]$`)

// FormatPostalCode reformats Canadian postal codes as "ANA NAN": strip
// spaces, uppercase, and reinsert the single space if the six characters
// match the letter-digit alternation. Anything else passes through
// unchanged; non-Canadian formats are not rejected.
func FormatPostalCode(code string) string {
	stripped := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), " ", ""))
	if canadianPostal.MatchString(stripped) {
		return stripped[:3] + " " + stripped[3:]
	}
	return code
}

// NormalizeWebsite reduces a website value to its registrable domain
// (eTLD+1) in lowercase. Values that do not parse pass through trimmed.
func NormalizeWebsite(site string) string {
	site = strings.TrimSpace(site)
	if site == "" {
		return ""
	}
	parse := site
	if !strings.Contains(parse, "://") {
		parse = "https://" + parse
	}
	u, err := url.Parse(parse)
	if err != nil || u.Hostname() == "" {
		return site
	}
	host := strings.ToLower(u.Hostname())
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return registrable
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
