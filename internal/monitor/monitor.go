// Package monitor collects periodic metrics snapshots, evaluates threshold
// rules, and maintains the alert store. Level-triggered conditions run
// through an explicit OK/ALERTING state machine per key so an ongoing
// condition logs once instead of every tick; edge-triggered conditions
// (one per discrete event, e.g. a failed job) fire once per id.
//
// All state here is process-local and in-memory: alert and suppression
// history resets on restart.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"vendorgrid/internal/metrics"
)

// Alert severities.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Alert is one raised condition. It is mutated only to flip Resolved.
type Alert struct {
	ID         string         `json:"id"`
	Severity   string         `json:"severity"`
	Type       string         `json:"type"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Resolved   bool           `json:"resolved"`
	ResolvedAt *time.Time     `json:"resolvedAt,omitempty"`
}

// Sample is the measurement set pulled from the ingestion side each tick.
type Sample struct {
	JobsRunning      int
	JobsCompleted    int
	JobsFailed       int
	APISuccessRate   float64
	DataQualityScore float64
}

// JobInfo is the minimal job state the rules inspect.
type JobInfo struct {
	ID        string
	Status    string
	StartedAt time.Time
}

// MetricsSnapshot is one tick's collected state.
type MetricsSnapshot struct {
	Timestamp        time.Time `json:"timestamp"`
	JobsRunning      int       `json:"jobsRunning"`
	JobsCompleted    int       `json:"jobsCompleted"`
	JobsFailed       int       `json:"jobsFailed"`
	APISuccessRate   float64   `json:"apiSuccessRate"`
	DataQualityScore float64   `json:"dataQualityScore"`
	HeapAllocBytes   uint64    `json:"heapAllocBytes"`
}

// Thresholds configures the rule set.
type Thresholds struct {
	DataQualityMin  float64
	APISuccessMin   float64
	LongRunningJob  time.Duration
	AutoResolveLow  time.Duration
	SnapshotHistory int
}

// DefaultThresholds returns the standard rule configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DataQualityMin:  70,
		APISuccessMin:   80,
		LongRunningJob:  time.Hour,
		AutoResolveLow:  30 * time.Minute,
		SnapshotHistory: 1440,
	}
}

// condition is one level-triggered rule, expressed as data so new alert
// types are additive.
type condition struct {
	key      string
	alert    string
	severity string
	message  func(Sample, Thresholds) string
	breached func(Sample, Thresholds) bool
}

var levelConditions = []condition{
	{
		key:      "data_quality",
		alert:    "data_quality_low",
		severity: SeverityMedium,
		message: func(s Sample, t Thresholds) string {
			return fmt.Sprintf("data quality score %.1f below threshold %.1f", s.DataQualityScore, t.DataQualityMin)
		},
		breached: func(s Sample, t Thresholds) bool { return s.DataQualityScore < t.DataQualityMin },
	},
	{
		key:      "api_success",
		alert:    "api_success_low",
		severity: SeverityLow,
		message: func(s Sample, t Thresholds) string {
			return fmt.Sprintf("api success rate %.1f below threshold %.1f", s.APISuccessRate, t.APISuccessMin)
		},
		breached: func(s Sample, t Thresholds) bool { return s.APISuccessRate < t.APISuccessMin },
	},
}

// Service is the monitoring loop. Collect and jobs are injected so the
// service has no compile-time dependency on the ingestion side.
type Service struct {
	interval   time.Duration
	thresholds Thresholds
	collect    func(ctx context.Context) (Sample, error)
	jobs       func() []JobInfo
	logger     *slog.Logger
	metrics    *metrics.Registry
	now        func() time.Time

	mu       sync.Mutex
	history  []MetricsSnapshot
	alerts   map[string]*Alert
	order    []string
	states   map[string]*AlertState
	episodes map[string]string // level condition key -> open alert id
}

// New builds the monitoring service.
func New(interval time.Duration, thresholds Thresholds, collect func(ctx context.Context) (Sample, error), jobs func() []JobInfo, reg *metrics.Registry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if thresholds.SnapshotHistory <= 0 {
		thresholds.SnapshotHistory = DefaultThresholds().SnapshotHistory
	}
	return &Service{
		interval:   interval,
		thresholds: thresholds,
		collect:    collect,
		jobs:       jobs,
		logger:     logger,
		metrics:    reg,
		now:        time.Now,
		alerts:     make(map[string]*Alert),
		states:     make(map[string]*AlertState),
		episodes:   make(map[string]string),
	}
}

// SetClock injects a clock for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Run ticks until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one collection and evaluation cycle. A failing or panicking
// collector becomes a system_health alert rather than crashing the loop.
func (s *Service) Tick(ctx context.Context) {
	sample, err := s.safeCollect(ctx)
	if err != nil {
		s.raiseEdge("system_health:collect", "system_health", SeverityCritical,
			"metrics collection failed: "+err.Error(), nil)
		return
	}

	snap := MetricsSnapshot{
		Timestamp:        s.now(),
		JobsRunning:      sample.JobsRunning,
		JobsCompleted:    sample.JobsCompleted,
		JobsFailed:       sample.JobsFailed,
		APISuccessRate:   sample.APISuccessRate,
		DataQualityScore: sample.DataQualityScore,
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	snap.HeapAllocBytes = ms.HeapAlloc

	s.mu.Lock()
	s.history = append(s.history, snap)
	if len(s.history) > s.thresholds.SnapshotHistory {
		s.history = s.history[len(s.history)-s.thresholds.SnapshotHistory:]
	}
	s.mu.Unlock()

	s.evaluateJobs()
	s.evaluateLevels(sample)
}

func (s *Service) safeCollect(ctx context.Context) (sample Sample, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("collector panic: %v", r)
		}
	}()
	return s.collect(ctx)
}

// evaluateJobs applies the edge-triggered rules: one alert per failed job
// id, one per long-running job id.
func (s *Service) evaluateJobs() {
	if s.jobs == nil {
		return
	}
	now := s.now()
	for _, j := range s.jobs() {
		switch {
		case j.Status == "failed":
			s.raiseEdge("failed_job:"+j.ID, "failed_job", SeverityHigh,
				"ingestion job "+j.ID+" failed", map[string]any{"jobId": j.ID})
		case j.Status == "running" && !j.StartedAt.IsZero() && now.Sub(j.StartedAt) > s.thresholds.LongRunningJob:
			s.raiseEdge("long_running_job:"+j.ID, "long_running_job", SeverityMedium,
				fmt.Sprintf("ingestion job %s running for %s", j.ID, now.Sub(j.StartedAt).Round(time.Minute)),
				map[string]any{"jobId": j.ID})
		}
	}
}

// evaluateLevels pushes the sample through every level-triggered state
// machine.
func (s *Service) evaluateLevels(sample Sample) {
	now := s.now()
	for _, cond := range levelConditions {
		s.mu.Lock()
		st, ok := s.states[cond.key]
		if !ok {
			st = &AlertState{Key: cond.key}
			s.states[cond.key] = st
		}
		event := st.Observe(cond.breached(sample, s.thresholds), now)
		s.mu.Unlock()

		switch event {
		case EventStarted:
			id := uuid.NewString()
			s.addAlert(&Alert{
				ID:        id,
				Severity:  cond.severity,
				Type:      cond.alert,
				Message:   cond.message(sample, s.thresholds),
				Timestamp: now,
			})
			s.mu.Lock()
			s.episodes[cond.key] = id
			s.mu.Unlock()
			s.logger.Warn("alert started", slog.String("type", cond.alert), slog.String("id", id))
		case EventResolved:
			s.mu.Lock()
			id := s.episodes[cond.key]
			suppressed := st.SuppressedCount
			delete(s.episodes, cond.key)
			s.mu.Unlock()
			if id != "" {
				s.resolve(id)
			}
			s.logger.Info("alert resolved",
				slog.String("type", cond.alert),
				slog.String("id", id),
				slog.Int("suppressed", suppressed),
			)
		}
	}
}

// raiseEdge creates an alert once per deterministic id. The exists check
// and the insert happen under one lock so concurrent callers cannot
// double-insert the same id.
func (s *Service) raiseEdge(id, alertType, severity, message string, details map[string]any) {
	a := &Alert{
		ID:        id,
		Severity:  severity,
		Type:      alertType,
		Message:   message,
		Details:   details,
		Timestamp: s.now(),
	}

	s.mu.Lock()
	if _, exists := s.alerts[id]; exists {
		s.mu.Unlock()
		return
	}
	s.insertLocked(a)
	s.mu.Unlock()

	s.afterInsert(a)
	s.logger.Warn("alert raised", slog.String("type", alertType), slog.String("id", id), slog.String("severity", severity))
}

func (s *Service) addAlert(a *Alert) {
	s.mu.Lock()
	s.insertLocked(a)
	s.mu.Unlock()
	s.afterInsert(a)
}

func (s *Service) insertLocked(a *Alert) {
	s.alerts[a.ID] = a
	s.order = append(s.order, a.ID)
}

func (s *Service) afterInsert(a *Alert) {
	s.updateActiveGauge()

	// Low-severity alerts clean up after themselves if nobody resolves
	// them first. The timer is independent of the metrics tick.
	if a.Severity == SeverityLow && s.thresholds.AutoResolveLow > 0 {
		id := a.ID
		time.AfterFunc(s.thresholds.AutoResolveLow, func() { s.resolve(id) })
	}
}

func (s *Service) resolve(id string) bool {
	s.mu.Lock()
	a, ok := s.alerts[id]
	if !ok || a.Resolved {
		s.mu.Unlock()
		return false
	}
	a.Resolved = true
	t := s.now()
	a.ResolvedAt = &t
	s.mu.Unlock()
	s.updateActiveGauge()
	return true
}

// ResolveAlert resolves an alert by id (the manual path).
func (s *Service) ResolveAlert(id string) bool { return s.resolve(id) }

func (s *Service) updateActiveGauge() {
	if s.metrics == nil {
		return
	}
	s.metrics.AlertsActive.Set(float64(len(s.Alerts(false))))
}

// Alerts returns alerts newest first; resolved ones only when asked.
func (s *Service) Alerts(includeResolved bool) []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Alert, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		a := s.alerts[s.order[i]]
		if a.Resolved && !includeResolved {
			continue
		}
		out = append(out, *a)
	}
	return out
}

// Snapshots returns the metrics history, oldest first.
func (s *Service) Snapshots() []MetricsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]MetricsSnapshot(nil), s.history...)
}

// Latest returns the most recent snapshot.
func (s *Service) Latest() (MetricsSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return MetricsSnapshot{}, false
	}
	return s.history[len(s.history)-1], true
}

// States returns the level-triggered machine states for the dashboard.
func (s *Service) States() []AlertState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AlertState, 0, len(s.states))
	for _, cond := range levelConditions {
		if st, ok := s.states[cond.key]; ok {
			out = append(out, *st)
		}
	}
	return out
}

// Dashboard is the aggregate monitoring view.
type Dashboard struct {
	Latest       *MetricsSnapshot `json:"latest,omitempty"`
	ActiveAlerts []Alert          `json:"activeAlerts"`
	States       []AlertState     `json:"states"`
	SnapshotLen  int              `json:"snapshotCount"`
}

// DashboardView assembles the dashboard payload.
func (s *Service) DashboardView() Dashboard {
	d := Dashboard{
		ActiveAlerts: s.Alerts(false),
		States:       s.States(),
	}
	if snap, ok := s.Latest(); ok {
		d.Latest = &snap
	}
	s.mu.Lock()
	d.SnapshotLen = len(s.history)
	s.mu.Unlock()
	return d
}
