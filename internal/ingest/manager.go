package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vendorgrid/internal/catalog"
	"vendorgrid/internal/domain"
	"vendorgrid/internal/metrics"
	"vendorgrid/internal/ports"
	"vendorgrid/internal/ratelimit"
)

// Options configures a Manager.
type Options struct {
	Retry RetryConfig

	// MaxConcurrent is how many sources run at once within a batch.
	MaxConcurrent int

	// BatchSize chunks the deduplicated records handed to the store.
	// Cancellation is honored at chunk boundaries, so an aborted run
	// persists a whole number of chunks. Zero or negative means one
	// chunk per run.
	BatchSize int

	// BatchDelay is the fixed pause between source batches.
	BatchDelay time.Duration

	// RateLimitPerSource is the budget applied when neither the source
	// nor the catalog declares one.
	RateLimitPerSource int

	// RequestTimeout bounds each outbound HTTP request.
	RequestTimeout time.Duration
}

// DefaultOptions returns the standard manager configuration.
func DefaultOptions() Options {
	return Options{
		Retry:         DefaultRetryConfig(),
		MaxConcurrent: 3,
		BatchSize:     100,
		BatchDelay:    2 * time.Second,
	}
}

// SyncInfo is the last recorded outcome for a source.
type SyncInfo struct {
	At     time.Time
	Status string
}

// Stats is the manager view the monitoring service samples.
type Stats struct {
	JobsRunning      int
	JobsCompleted    int
	JobsFailed       int
	APISuccessRate   float64 // successful runs / total runs, percent
	DataQualityScore float64 // valid records / processed records, percent
	RecordsProcessed int64
	RecordsSaved     int64
}

// Manager orchestrates source downloads: downloader selection, rate
// limiting, retry with exponential backoff, concurrency batching, and
// outcome recording. All mutable state is instance-owned and
// process-local; running two instances doubles rate limits and defeats
// the in-flight guard (a documented single-instance assumption).
type Manager struct {
	cat         *catalog.Catalog
	limiter     *ratelimit.Limiter
	downloaders map[string]Downloader
	store       ports.ImportStore
	mapper      *Mapper
	validator   *Validator
	metrics     *metrics.Registry
	registry    *JobRegistry
	opts        Options
	logger      *slog.Logger

	// sleep is injectable so retry/batch tests run instantly.
	sleep func(ctx context.Context, d time.Duration) error

	mu         sync.Mutex
	inflight   map[string]bool
	lastSync   map[string]SyncInfo
	runsTotal  int64
	runsOK     int64
	processed  int64
	validCount int64
	saved      int64
}

// NewManager wires a manager from its collaborators.
func NewManager(cat *catalog.Catalog, store ports.ImportStore, reg *metrics.Registry, logger *slog.Logger, opts Options) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry.MaxAttempts = 1
	}
	return &Manager{
		cat:     cat,
		limiter: ratelimit.New(),
		downloaders: map[string]Downloader{
			catalog.TypeFile: NewFileDownloader(opts.RequestTimeout),
			catalog.TypeAPI:  NewAPIDownloader(opts.RequestTimeout),
			catalog.TypeWeb:  NewWebDownloader(opts.RequestTimeout),
		},
		store:     store,
		mapper:    NewMapper(logger),
		validator: NewValidator(),
		metrics:   reg,
		registry:  NewJobRegistry(),
		opts:      opts,
		logger:    logger,
		sleep:     sleepCtx,
		inflight:  make(map[string]bool),
		lastSync:  make(map[string]SyncInfo),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SetDownloader replaces the downloader for a source type. Tests use this
// to substitute fakes.
func (m *Manager) SetDownloader(sourceType string, d Downloader) {
	m.downloaders[sourceType] = d
}

// Jobs exposes the job registry.
func (m *Manager) Jobs() *JobRegistry { return m.registry }

// Catalog exposes the immutable source catalog.
func (m *Manager) Catalog() *catalog.Catalog { return m.cat }

// DownloadFromSource runs one source end to end: in-flight guard, rate
// limit, download with retry, then the record pipeline. The outcome is
// recorded to history and metrics regardless of success, and failures are
// always reported inside the result, never as a Go error.
func (m *Manager) DownloadFromSource(ctx context.Context, src catalog.Source) DownloadResult {
	m.mu.Lock()
	if m.inflight[src.ID] {
		m.mu.Unlock()
		return m.finishResult(failure(src.ID, "download already in progress"), 0)
	}
	m.inflight[src.ID] = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.inflight, src.ID)
		m.mu.Unlock()
	}()

	start := time.Now()

	limit := m.cat.EffectiveRateLimit(src)
	if limit <= 0 {
		limit = m.opts.RateLimitPerSource
	}
	if !m.limiter.Allow(src.ID, limit) {
		if m.metrics != nil {
			m.metrics.RateLimited.WithLabelValues(src.ID).Inc()
		}
		return m.finishResult(failure(src.ID, fmt.Sprintf("rate limit exceeded (%d/min)", limit)), time.Since(start))
	}

	dl, ok := m.downloaders[src.Type]
	if !ok {
		return m.finishResult(failure(src.ID, fmt.Sprintf("no downloader for source type %q", src.Type)), time.Since(start))
	}

	res := m.fetchWithRetry(ctx, dl, src)
	if res.Success {
		m.process(ctx, src, &res)
	}
	return m.finishResult(res, time.Since(start))
}

// fetchWithRetry wraps the downloader in the exponential-backoff policy,
// retaining every attempt's errors.
func (m *Manager) fetchWithRetry(ctx context.Context, dl Downloader, src catalog.Source) DownloadResult {
	var allErrors []string
	for attempt := 1; attempt <= m.opts.Retry.MaxAttempts; attempt++ {
		if err := m.sleep(ctx, m.opts.Retry.Delay(attempt)); err != nil {
			allErrors = append(allErrors, "cancelled: "+err.Error())
			break
		}
		res := dl.Fetch(ctx, src)
		if res.Success {
			res.Errors = append(allErrors, res.Errors...)
			return res
		}
		for _, e := range res.Errors {
			allErrors = append(allErrors, fmt.Sprintf("attempt %d: %s", attempt, e))
		}
		m.logger.Warn("download attempt failed",
			slog.String("source", src.ID),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", m.opts.Retry.MaxAttempts),
		)
	}
	return failure(src.ID, allErrors...)
}

// process runs the record pipeline: map, validate, dedupe, persist.
// Pipeline problems are recorded in the result; they do not undo a
// successful download.
func (m *Manager) process(ctx context.Context, src catalog.Source, res *DownloadResult) {
	if len(res.Records) == 0 {
		return
	}

	mapped := make([]domain.BusinessRecord, 0, len(res.Records))
	for _, raw := range res.Records {
		mapped = append(mapped, m.mapper.Map(src, raw))
	}

	valid, invalid := m.validator.Partition(mapped)
	for _, bad := range invalid {
		res.Errors = append(res.Errors, fmt.Sprintf("invalid record %q: %s", bad.Record.CompanyName, joinErrors(bad.Errors)))
	}

	deduped := Dedupe(valid)

	chunk := m.opts.BatchSize
	if chunk < 1 {
		chunk = len(deduped)
	}
	saved := 0
	for start := 0; start < len(deduped); start += chunk {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, "persist aborted: "+err.Error())
			res.Success = false
			break
		}
		end := start + chunk
		if end > len(deduped) {
			end = len(deduped)
		}
		for _, rec := range deduped[start:end] {
			created, err := m.store.ImportRecord(ctx, rec, src.Name)
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("persist %q: %v", rec.BusinessIdentifier, err))
				continue
			}
			if created {
				saved++
			}
		}
	}
	res.RecordsSaved = saved

	m.mu.Lock()
	m.processed += int64(len(mapped))
	m.validCount += int64(len(valid))
	m.saved += int64(saved)
	m.mu.Unlock()
}

func joinErrors(errs []string) string {
	out := ""
	for i, e := range errs {
		if i > 0 {
			out += "; "
		}
		out += e
	}
	return out
}

// finishResult stamps timing, records history, metrics and the per-source
// last-sync state.
func (m *Manager) finishResult(res DownloadResult, elapsed time.Duration) DownloadResult {
	res.DownloadTimeMs = elapsed.Milliseconds()
	res.FinishedAt = time.Now()

	status := "success"
	if !res.Success {
		status = "failure"
	}
	if m.metrics != nil {
		m.metrics.RunsTotal.WithLabelValues(res.Source, status).Inc()
		m.metrics.RecordsProcessed.WithLabelValues(res.Source).Add(float64(res.RecordsProcessed))
		m.metrics.RecordsSaved.WithLabelValues(res.Source).Add(float64(res.RecordsSaved))
		m.metrics.DownloadDuration.WithLabelValues(res.Source).Observe(elapsed.Seconds())
	}

	m.mu.Lock()
	m.runsTotal++
	if res.Success {
		m.runsOK++
	}
	m.lastSync[res.Source] = SyncInfo{At: res.FinishedAt, Status: status}
	m.mu.Unlock()

	m.registry.AppendHistory(res)
	m.logger.Info("source run finished",
		slog.String("source", res.Source),
		slog.Bool("success", res.Success),
		slog.Int("processed", res.RecordsProcessed),
		slog.Int("saved", res.RecordsSaved),
		slog.Int64("duration_ms", res.DownloadTimeMs),
	)
	return res
}

// StartSourceJob launches a single-source ingestion job in the
// background.
func (m *Manager) StartSourceJob(ctx context.Context, src catalog.Source) *Job {
	job := m.registry.NewJob(JobTypeSource, []string{src.ID})
	go m.runJob(ctx, job, []catalog.Source{src})
	return job
}

// StartFullJob launches ingestion of every enabled source.
func (m *Manager) StartFullJob(ctx context.Context) *Job {
	sources := m.cat.Enabled()
	ids := make([]string, 0, len(sources))
	for _, s := range sources {
		ids = append(ids, s.ID)
	}
	job := m.registry.NewJob(JobTypeFull, ids)
	go m.runJob(ctx, job, sources)
	return job
}

// HasActiveFullRun reports whether a full-catalog job is still running.
func (m *Manager) HasActiveFullRun() bool {
	for _, v := range m.registry.List() {
		if v.Type == JobTypeFull && (v.Status == JobRunning || v.Status == JobPaused || v.Status == JobQueued) {
			return true
		}
	}
	return false
}

// runJob processes sources in concurrency batches with all-settled
// semantics: one source's failure never aborts its siblings. The job's
// pause flag and the context are honored at batch boundaries only.
func (m *Manager) runJob(ctx context.Context, job *Job, sources []catalog.Source) {
	job.start()
	total := len(sources)
	done := 0

	for batchStart := 0; batchStart < total; batchStart += m.opts.MaxConcurrent {
		if err := job.awaitResume(ctx); err != nil {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if batchStart > 0 {
			if err := m.sleep(ctx, m.opts.BatchDelay); err != nil {
				break
			}
		}

		end := batchStart + m.opts.MaxConcurrent
		if end > total {
			end = total
		}
		batch := sources[batchStart:end]

		results := make([]DownloadResult, len(batch))
		var wg sync.WaitGroup
		for i, src := range batch {
			wg.Add(1)
			go func(i int, src catalog.Source) {
				defer wg.Done()
				results[i] = m.DownloadFromSource(ctx, src)
			}(i, src)
		}
		wg.Wait()

		for _, res := range results {
			done++
			job.addResult(res, float64(done)/float64(total))
		}
	}

	job.finish()
}

// Stats samples the manager's cumulative counters for monitoring.
func (m *Manager) Stats() Stats {
	running, completed, failed := m.registry.Counts()

	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		JobsRunning:      running,
		JobsCompleted:    completed,
		JobsFailed:       failed,
		APISuccessRate:   100,
		DataQualityScore: 100,
		RecordsProcessed: m.processed,
		RecordsSaved:     m.saved,
	}
	if m.runsTotal > 0 {
		s.APISuccessRate = 100 * float64(m.runsOK) / float64(m.runsTotal)
	}
	if m.processed > 0 {
		s.DataQualityScore = 100 * float64(m.validCount) / float64(m.processed)
	}
	return s
}

// SourceStatuses lists the catalog with each source's last sync outcome.
func (m *Manager) SourceStatuses() []catalog.SourceStatus {
	m.mu.Lock()
	last := make(map[string]SyncInfo, len(m.lastSync))
	for k, v := range m.lastSync {
		last[k] = v
	}
	m.mu.Unlock()

	out := make([]catalog.SourceStatus, 0, len(m.cat.Sources))
	for _, s := range m.cat.Sources {
		st := catalog.SourceStatus{
			ID:        s.ID,
			Name:      s.Name,
			Type:      s.Type,
			Enabled:   s.Enabled,
			RateLimit: m.cat.EffectiveRateLimit(s),
		}
		if info, ok := last[s.ID]; ok {
			t := info.At
			st.LastSyncAt = &t
			st.LastStatus = info.Status
		}
		out = append(out, st)
	}
	return out
}
