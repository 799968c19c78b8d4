package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job lifecycle states.
const (
	JobQueued    = "queued"
	JobRunning   = "running"
	JobPaused    = "paused"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// Job types.
const (
	JobTypeFull   = "full"
	JobTypeSource = "source"
)

// Job tracks one ingestion run across one or more sources. Pause acts at
// batch boundaries: a download already in flight cannot be aborted.
type Job struct {
	ID        string
	Type      string
	SourceIDs []string

	mu         sync.Mutex
	status     string
	progress   float64
	startedAt  time.Time
	finishedAt *time.Time
	results    []DownloadResult
	paused     bool
	resume     chan struct{}
}

// JobView is the race-free snapshot handed to HTTP callers.
type JobView struct {
	ID         string           `json:"id"`
	Type       string           `json:"type"`
	SourceIDs  []string         `json:"sourceIds"`
	Status     string           `json:"status"`
	Progress   float64          `json:"progress"`
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt *time.Time       `json:"finishedAt,omitempty"`
	Results    []DownloadResult `json:"results"`
}

func (j *Job) View() JobView {
	j.mu.Lock()
	defer j.mu.Unlock()
	v := JobView{
		ID:        j.ID,
		Type:      j.Type,
		SourceIDs: append([]string(nil), j.SourceIDs...),
		Status:    j.status,
		Progress:  j.progress,
		StartedAt: j.startedAt,
		Results:   append([]DownloadResult(nil), j.results...),
	}
	if j.finishedAt != nil {
		t := *j.finishedAt
		v.FinishedAt = &t
	}
	return v
}

// Pause requests the job stop at the next batch boundary.
func (j *Job) Pause() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != JobRunning && j.status != JobQueued {
		return false
	}
	if !j.paused {
		j.paused = true
		j.resume = make(chan struct{})
		j.status = JobPaused
	}
	return true
}

// Resume releases a paused job.
func (j *Job) Resume() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.paused {
		return false
	}
	j.paused = false
	j.status = JobRunning
	close(j.resume)
	return true
}

// awaitResume blocks while the job is paused.
func (j *Job) awaitResume(ctx context.Context) error {
	j.mu.Lock()
	paused := j.paused
	ch := j.resume
	j.mu.Unlock()
	if !paused {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}

func (j *Job) start() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status == JobQueued {
		j.status = JobRunning
	}
	j.startedAt = time.Now()
}

func (j *Job) addResult(res DownloadResult, progress float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results = append(j.results, res)
	j.progress = progress
}

func (j *Job) finish() {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	j.finishedAt = &now
	j.progress = 1
	j.status = JobCompleted
	for _, res := range j.results {
		if !res.Success {
			j.status = JobFailed
			break
		}
	}
}

func (j *Job) statusNow() (string, time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status, j.startedAt
}

// historyCap bounds the append-only run-outcome history.
const historyCap = 1000

// JobRegistry owns job handles and the capped run history. Both are
// process-local in-memory state: a restart forgets them.
type JobRegistry struct {
	mu      sync.Mutex
	jobs    map[string]*Job
	order   []string
	history []DownloadResult
}

func NewJobRegistry() *JobRegistry {
	return &JobRegistry{jobs: make(map[string]*Job)}
}

// NewJob registers a queued job.
func (r *JobRegistry) NewJob(jobType string, sourceIDs []string) *Job {
	j := &Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		SourceIDs: sourceIDs,
		status:    JobQueued,
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.ID] = j
	r.order = append(r.order, j.ID)
	return j
}

// Get returns the job handle for id.
func (r *JobRegistry) Get(id string) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	return j, ok
}

// List returns snapshots of every job, newest first.
func (r *JobRegistry) List() []JobView {
	r.mu.Lock()
	ids := append([]string(nil), r.order...)
	r.mu.Unlock()

	views := make([]JobView, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if j, ok := r.Get(ids[i]); ok {
			views = append(views, j.View())
		}
	}
	return views
}

// AppendHistory records a finished source run, evicting the oldest entry
// past the cap.
func (r *JobRegistry) AppendHistory(res DownloadResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, res)
	if len(r.history) > historyCap {
		r.history = r.history[len(r.history)-historyCap:]
	}
}

// History returns a copy of the run-outcome history, oldest first.
func (r *JobRegistry) History() []DownloadResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]DownloadResult(nil), r.history...)
}

// Counts tallies jobs by terminal state.
func (r *JobRegistry) Counts() (running, completed, failed int) {
	r.mu.Lock()
	ids := append([]string(nil), r.order...)
	jobs := make([]*Job, 0, len(ids))
	for _, id := range ids {
		jobs = append(jobs, r.jobs[id])
	}
	r.mu.Unlock()

	for _, j := range jobs {
		status, _ := j.statusNow()
		switch status {
		case JobRunning, JobPaused:
			running++
		case JobCompleted:
			completed++
		case JobFailed:
			failed++
		}
	}
	return running, completed, failed
}

// Summaries exposes minimal job state for the monitoring rules.
func (r *JobRegistry) Summaries() []JobSummary {
	r.mu.Lock()
	ids := append([]string(nil), r.order...)
	r.mu.Unlock()

	out := make([]JobSummary, 0, len(ids))
	for _, id := range ids {
		if j, ok := r.Get(id); ok {
			status, started := j.statusNow()
			out = append(out, JobSummary{ID: j.ID, Status: status, StartedAt: started})
		}
	}
	return out
}

// JobSummary is the monitoring view of a job.
type JobSummary struct {
	ID        string
	Status    string
	StartedAt time.Time
}
