// Package analytics derives read-only KPI views from the ingestion run
// history: per-source health scores, an error taxonomy, trend figures and
// cost-routing recommendations. Nothing here mutates pipeline state.
package analytics

import (
	"regexp"
	"sort"
	"time"

	"vendorgrid/internal/catalog"
	"vendorgrid/internal/ingest"
)

// ErrorCategory is one entry of the ordered taxonomy. Evaluation is
// top-to-bottom, first match wins; the order is exposed through the API so
// precedence is auditable rather than implicit.
type ErrorCategory struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
	re      *regexp.Regexp
}

// Uncategorized is the fallthrough bucket.
const Uncategorized = "uncategorized"

func mustCategory(name, pattern string) ErrorCategory {
	return ErrorCategory{Name: name, Pattern: pattern, re: regexp.MustCompile(pattern)}
}

// defaultTaxonomy orders the built-in categories. rate_limit precedes
// network because limiter messages would otherwise match the broader
// transport patterns.
var defaultTaxonomy = []ErrorCategory{
	mustCategory("rate_limit", `(?i)rate limit`),
	mustCategory("network", `(?i)(HTTP [45]\d\d|timeout|timed out|connection|dns|no such host|fetch:|EOF)`),
	mustCategory("parsing", `(?i)(parse|unmarshal|malformed|unexpected|archive|content too large)`),
	mustCategory("validation", `(?i)(invalid record|required|missing)`),
	mustCategory("persistence", `(?i)(persist|constraint|duplicate|transaction|sql)`),
}

// Categorize returns the first matching category name.
func Categorize(taxonomy []ErrorCategory, message string) string {
	for _, c := range taxonomy {
		if c.re.MatchString(message) {
			return c.Name
		}
	}
	return Uncategorized
}

// SourceHealth is the per-source derived health view. Health blends
// success rate, uptime and a linear latency penalty:
// success*0.4 + uptime*0.3 + latencyScore*0.3, with
// latencyScore = max(0, 100 - latencyMs/1000).
type SourceHealth struct {
	SourceID     string  `json:"sourceId"`
	Runs         int     `json:"runs"`
	SuccessRate  float64 `json:"successRate"`
	Uptime       float64 `json:"uptime"`
	AvgLatencyMs float64 `json:"avgLatencyMs"`
	LatencyScore float64 `json:"latencyScore"`
	HealthScore  float64 `json:"healthScore"`
}

// TrendPoint compares one metric across two equal-length adjacent day
// windows.
type TrendPoint struct {
	Metric    string  `json:"metric"`
	Current   float64 `json:"current"`
	Previous  float64 `json:"previous"`
	ChangePct float64 `json:"changePct"`
}

// CostEntry ranks one source by its configured cost per record.
type CostEntry struct {
	SourceID      string  `json:"sourceId"`
	CostPerRecord float64 `json:"costPerRecord"`
	RecordsSaved  int     `json:"recordsSaved"`
	EstimatedCost float64 `json:"estimatedCost"`
}

// CostRouting is the cost view plus an optional switch recommendation.
type CostRouting struct {
	Ranking        []CostEntry `json:"ranking"`
	Recommendation string      `json:"recommendation,omitempty"`
}

// Summary is the KPI rollup for the dashboard.
type Summary struct {
	TotalRuns        int            `json:"totalRuns"`
	SuccessRate      float64        `json:"successRate"`
	RecordsProcessed int            `json:"recordsProcessed"`
	RecordsSaved     int            `json:"recordsSaved"`
	ErrorCounts      map[string]int `json:"errorCounts"`
	Sources          []SourceHealth `json:"sources"`
}

// minSavingsRatio is the minimal relative saving before a cost-routing
// recommendation is worth surfacing.
const minSavingsRatio = 0.10

// Aggregator computes the derived views over the manager's run history.
type Aggregator struct {
	cat      *catalog.Catalog
	history  func() []ingest.DownloadResult
	taxonomy []ErrorCategory
	now      func() time.Time
}

func New(cat *catalog.Catalog, history func() []ingest.DownloadResult) *Aggregator {
	return &Aggregator{
		cat:      cat,
		history:  history,
		taxonomy: defaultTaxonomy,
		now:      time.Now,
	}
}

// SetClock injects a clock for tests.
func (a *Aggregator) SetClock(now func() time.Time) { a.now = now }

// Taxonomy exposes the ordered category list.
func (a *Aggregator) Taxonomy() []ErrorCategory {
	return append([]ErrorCategory(nil), a.taxonomy...)
}

// SourceHealthScores computes the per-source health view, ordered by
// descending health.
func (a *Aggregator) SourceHealthScores() []SourceHealth {
	type acc struct {
		runs, ok, up int
		latencySum   int64
	}
	accs := make(map[string]*acc)
	for _, res := range a.history() {
		s, ok := accs[res.Source]
		if !ok {
			s = &acc{}
			accs[res.Source] = s
		}
		s.runs++
		s.latencySum += res.DownloadTimeMs
		if res.Success {
			s.ok++
			s.up++
			continue
		}
		// A failed run still counts toward uptime when the failure was
		// not a transport problem: the source answered, we just could
		// not use the answer.
		transport := false
		for _, msg := range res.Errors {
			if Categorize(a.taxonomy, msg) == "network" {
				transport = true
				break
			}
		}
		if !transport {
			s.up++
		}
	}

	out := make([]SourceHealth, 0, len(accs))
	for id, s := range accs {
		h := SourceHealth{SourceID: id, Runs: s.runs}
		if s.runs > 0 {
			h.SuccessRate = 100 * float64(s.ok) / float64(s.runs)
			h.Uptime = 100 * float64(s.up) / float64(s.runs)
			h.AvgLatencyMs = float64(s.latencySum) / float64(s.runs)
		}
		h.LatencyScore = 100 - h.AvgLatencyMs/1000
		if h.LatencyScore < 0 {
			h.LatencyScore = 0
		}
		h.HealthScore = h.SuccessRate*0.4 + h.Uptime*0.3 + h.LatencyScore*0.3
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HealthScore != out[j].HealthScore {
			return out[i].HealthScore > out[j].HealthScore
		}
		return out[i].SourceID < out[j].SourceID
	})
	return out
}

// ErrorBreakdown tallies every recorded run error by category.
func (a *Aggregator) ErrorBreakdown() map[string]int {
	counts := make(map[string]int)
	for _, res := range a.history() {
		for _, msg := range res.Errors {
			counts[Categorize(a.taxonomy, msg)]++
		}
	}
	return counts
}

// Trends compares the last windowDays days against the windowDays before
// them.
func (a *Aggregator) Trends(windowDays int) []TrendPoint {
	if windowDays < 1 {
		windowDays = 7
	}
	now := a.now()
	windowStart := now.AddDate(0, 0, -windowDays)
	prevStart := now.AddDate(0, 0, -2*windowDays)

	var curProcessed, prevProcessed, curFailures, prevFailures float64
	for _, res := range a.history() {
		switch {
		case res.FinishedAt.After(windowStart):
			curProcessed += float64(res.RecordsProcessed)
			if !res.Success {
				curFailures++
			}
		case res.FinishedAt.After(prevStart):
			prevProcessed += float64(res.RecordsProcessed)
			if !res.Success {
				prevFailures++
			}
		}
	}

	return []TrendPoint{
		trendPoint("records_processed", curProcessed, prevProcessed),
		trendPoint("failed_runs", curFailures, prevFailures),
	}
}

func trendPoint(metric string, current, previous float64) TrendPoint {
	p := TrendPoint{Metric: metric, Current: current, Previous: previous}
	if previous != 0 {
		p.ChangePct = 100 * (current - previous) / previous
	} else if current != 0 {
		p.ChangePct = 100
	}
	return p
}

// CostRoutingView ranks sources by configured cost per record and flags
// the cheapest non-zero alternative to the most expensive source when the
// saving clears the threshold. Government registries mostly cost nothing,
// so an empty recommendation is the common case.
func (a *Aggregator) CostRoutingView() CostRouting {
	saved := make(map[string]int)
	for _, res := range a.history() {
		saved[res.Source] += res.RecordsSaved
	}

	var ranking []CostEntry
	for _, src := range a.cat.Sources {
		e := CostEntry{
			SourceID:      src.ID,
			CostPerRecord: src.CostPerRecord,
			RecordsSaved:  saved[src.ID],
		}
		e.EstimatedCost = e.CostPerRecord * float64(e.RecordsSaved)
		ranking = append(ranking, e)
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].CostPerRecord != ranking[j].CostPerRecord {
			return ranking[i].CostPerRecord < ranking[j].CostPerRecord
		}
		return ranking[i].SourceID < ranking[j].SourceID
	})

	view := CostRouting{Ranking: ranking}
	if len(ranking) < 2 {
		return view
	}
	mostExpensive := ranking[len(ranking)-1]
	if mostExpensive.CostPerRecord <= 0 {
		return view
	}
	var cheapest *CostEntry
	for i := range ranking {
		if ranking[i].CostPerRecord > 0 {
			cheapest = &ranking[i]
			break
		}
	}
	if cheapest == nil || cheapest.SourceID == mostExpensive.SourceID {
		return view
	}
	saving := (mostExpensive.CostPerRecord - cheapest.CostPerRecord) / mostExpensive.CostPerRecord
	if saving >= minSavingsRatio {
		view.Recommendation = "route volume from " + mostExpensive.SourceID + " to " + cheapest.SourceID
	}
	return view
}

// SummaryView assembles the KPI rollup.
func (a *Aggregator) SummaryView() Summary {
	hist := a.history()
	s := Summary{
		ErrorCounts: make(map[string]int),
		Sources:     a.SourceHealthScores(),
	}
	ok := 0
	for _, res := range hist {
		s.TotalRuns++
		s.RecordsProcessed += res.RecordsProcessed
		s.RecordsSaved += res.RecordsSaved
		if res.Success {
			ok++
		}
		for _, msg := range res.Errors {
			s.ErrorCounts[Categorize(a.taxonomy, msg)]++
		}
	}
	if s.TotalRuns > 0 {
		s.SuccessRate = 100 * float64(ok) / float64(s.TotalRuns)
	}
	return s
}
