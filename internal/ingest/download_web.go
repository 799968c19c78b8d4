package ingest

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"vendorgrid/internal/catalog"
	"vendorgrid/internal/domain"
)

// WebDownloader scrapes registry pages. A source may declare CSS
// selectors; without them a generic heuristic guesses at table rows and
// definition lists. Pagination is naive: append page=N and stop on an
// empty page or a 404.
type WebDownloader struct {
	client *http.Client
}

func NewWebDownloader(timeout time.Duration) *WebDownloader {
	return &WebDownloader{client: newHTTPClient(timeout)}
}

func (d *WebDownloader) Fetch(ctx context.Context, src catalog.Source) DownloadResult {
	maxPages := src.MaxPages
	if maxPages < 1 {
		maxPages = 1
	}

	var all []domain.RawRecord
	for page := 1; page <= maxPages; page++ {
		url := src.URL
		if page > 1 {
			url = pageURL(src.URL, page)
		}
		body, _, err := fetchBytes(ctx, d.client, url, "")
		if err != nil {
			if page > 1 && strings.Contains(err.Error(), "HTTP 404") {
				break // ran off the end of pagination
			}
			if page > 1 {
				res := failure(src.ID, fmt.Sprintf("page %d: %v", page, err))
				res.Records = all
				res.RecordsProcessed = len(all)
				return res
			}
			return failure(src.ID, err.Error())
		}
		records, err := extractRecords(body, src.Selectors)
		if err != nil {
			return failure(src.ID, "parse html: "+err.Error())
		}
		if len(records) == 0 {
			break
		}
		all = append(all, records...)
	}

	return DownloadResult{
		Source:           src.ID,
		Success:          true,
		RecordsProcessed: len(all),
		Records:          all,
	}
}

func pageURL(base string, page int) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spage=%d", base, sep, page)
}

func extractRecords(body []byte, sel catalog.WebSelectors) ([]domain.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if sel.Row != "" {
		return extractBySelectors(doc, sel), nil
	}
	if records := extractTables(doc); len(records) > 0 {
		return records, nil
	}
	return extractDefinitionLists(doc), nil
}

func extractBySelectors(doc *goquery.Document, sel catalog.WebSelectors) []domain.RawRecord {
	var records []domain.RawRecord
	doc.Find(sel.Row).Each(func(_ int, row *goquery.Selection) {
		rec := domain.RawRecord{}
		if sel.Name != "" {
			rec["company_name"] = cleanText(row.Find(sel.Name).First().Text())
		}
		if sel.Identifier != "" {
			rec["business_number"] = cleanText(row.Find(sel.Identifier).First().Text())
		}
		if sel.Address != "" {
			rec["address"] = cleanText(row.Find(sel.Address).First().Text())
		}
		if rec["company_name"] != "" || rec["business_number"] != "" {
			records = append(records, rec)
		}
	})
	return records
}

// columnKeywords classifies a header label onto a raw key the mapper's
// default candidates will recognize.
var columnKeywords = []struct {
	keyword string
	rawKey  string
}{
	{"company", "company_name"},
	{"name", "company_name"},
	{"number", "business_number"},
	{"identifier", "business_number"},
	{"id", "business_number"},
	{"address", "address"},
	{"city", "city"},
	{"province", "province"},
	{"postal", "postal_code"},
	{"phone", "phone"},
	{"email", "email"},
	{"website", "website"},
}

func classifyHeader(label string) string {
	l := strings.ToLower(label)
	for _, ck := range columnKeywords {
		if strings.Contains(l, ck.keyword) {
			return ck.rawKey
		}
	}
	return ""
}

// positionalKeys are the fallback column guesses when a table has no
// recognizable header: name, identifier, address by position.
var positionalKeys = []string{"company_name", "business_number", "address"}

func extractTables(doc *goquery.Document) []domain.RawRecord {
	var records []domain.RawRecord
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}

		// Try the first row as a header.
		var keys []string
		headerUsable := false
		rows.First().Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			key := classifyHeader(cell.Text())
			keys = append(keys, key)
			if key != "" {
				headerUsable = true
			}
		})

		start := 1
		if !headerUsable {
			keys = positionalKeys
			// No header row detected; treat every row as data.
			if rows.First().Find("th").Length() == 0 {
				start = 0
			}
		}

		rows.Each(func(i int, row *goquery.Selection) {
			if i < start {
				return
			}
			rec := domain.RawRecord{}
			row.Find("td").Each(func(j int, cell *goquery.Selection) {
				if j < len(keys) && keys[j] != "" {
					rec[keys[j]] = cleanText(cell.Text())
				}
			})
			if rec["company_name"] != "" || rec["business_number"] != "" {
				records = append(records, rec)
			}
		})
	})
	return records
}

func extractDefinitionLists(doc *goquery.Document) []domain.RawRecord {
	var records []domain.RawRecord
	doc.Find("dl").Each(func(_ int, dl *goquery.Selection) {
		rec := domain.RawRecord{}
		dl.Find("dt").Each(func(_ int, dt *goquery.Selection) {
			key := classifyHeader(dt.Text())
			if key == "" {
				return
			}
			if dd := dt.NextFiltered("dd"); dd.Length() > 0 {
				rec[key] = cleanText(dd.Text())
			}
		})
		if rec["company_name"] != "" || rec["business_number"] != "" {
			records = append(records, rec)
		}
	})
	return records
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
