package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectorStub struct {
	sample Sample
	err    error
	panics bool
}

func (c *collectorStub) collect(ctx context.Context) (Sample, error) {
	if c.panics {
		panic("boom")
	}
	return c.sample, c.err
}

func newTestService(c *collectorStub, jobs func() []JobInfo) *Service {
	th := DefaultThresholds()
	th.AutoResolveLow = 0 // no timers during tests
	return New(time.Minute, th, c.collect, jobs, nil, nil)
}

func healthySample() Sample {
	return Sample{APISuccessRate: 100, DataQualityScore: 100}
}

func TestTickRecordsSnapshot(t *testing.T) {
	c := &collectorStub{sample: Sample{JobsRunning: 2, APISuccessRate: 95, DataQualityScore: 90}}
	s := newTestService(c, nil)

	s.Tick(context.Background())
	s.Tick(context.Background())

	snaps := s.Snapshots()
	require.Len(t, snaps, 2)
	assert.Equal(t, 2, snaps[0].JobsRunning)
	assert.NotZero(t, snaps[0].HeapAllocBytes)

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, 95.0, latest.APISuccessRate)
	assert.Empty(t, s.Alerts(false), "healthy samples raise nothing")
}

func TestLevelAlertSuppression(t *testing.T) {
	c := &collectorStub{sample: Sample{APISuccessRate: 100, DataQualityScore: 40}}
	s := newTestService(c, nil)

	// Five breaching ticks: one started, four suppressed.
	for i := 0; i < 5; i++ {
		s.Tick(context.Background())
	}
	alerts := s.Alerts(false)
	require.Len(t, alerts, 1, "ongoing condition raises exactly one alert")
	assert.Equal(t, "data_quality_low", alerts[0].Type)
	assert.Equal(t, SeverityMedium, alerts[0].Severity)

	states := s.States()
	require.Len(t, states, 2)
	var dq AlertState
	for _, st := range states {
		if st.Key == "data_quality" {
			dq = st
		}
	}
	assert.Equal(t, StateAlerting, dq.State)
	assert.Equal(t, 4, dq.SuppressedCount)

	// Recovery resolves the episode.
	c.sample = healthySample()
	s.Tick(context.Background())
	assert.Empty(t, s.Alerts(false))

	resolved := s.Alerts(true)
	require.Len(t, resolved, 1)
	assert.True(t, resolved[0].Resolved)
	require.NotNil(t, resolved[0].ResolvedAt)

	// A second breach opens a new, separate alert.
	c.sample = Sample{APISuccessRate: 100, DataQualityScore: 40}
	s.Tick(context.Background())
	assert.Len(t, s.Alerts(true), 2)
}

func TestRaiseEdgeConcurrentSameID(t *testing.T) {
	s := newTestService(&collectorStub{sample: healthySample()}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.raiseEdge("failed_job:j1", "failed_job", SeverityHigh, "job j1 failed", nil)
		}()
	}
	wg.Wait()

	assert.Len(t, s.Alerts(false), 1, "one alert per edge id")
}

func TestFailedJobEdgeAlert(t *testing.T) {
	jobs := []JobInfo{{ID: "job-1", Status: "failed", StartedAt: time.Now()}}
	s := newTestService(&collectorStub{sample: healthySample()}, func() []JobInfo { return jobs })

	s.Tick(context.Background())
	s.Tick(context.Background())

	alerts := s.Alerts(false)
	require.Len(t, alerts, 1, "one alert per failed job id, not per tick")
	assert.Equal(t, "failed_job", alerts[0].Type)
	assert.Equal(t, SeverityHigh, alerts[0].Severity)
	assert.Equal(t, "job-1", alerts[0].Details["jobId"])
}

func TestLongRunningJobAlert(t *testing.T) {
	jobs := []JobInfo{{ID: "job-2", Status: "running", StartedAt: time.Now().Add(-2 * time.Hour)}}
	s := newTestService(&collectorStub{sample: healthySample()}, func() []JobInfo { return jobs })

	s.Tick(context.Background())

	alerts := s.Alerts(false)
	require.Len(t, alerts, 1)
	assert.Equal(t, "long_running_job", alerts[0].Type)
}

func TestCollectorFailureRaisesSystemHealth(t *testing.T) {
	c := &collectorStub{err: errors.New("db unreachable")}
	s := newTestService(c, nil)

	s.Tick(context.Background())

	alerts := s.Alerts(false)
	require.Len(t, alerts, 1)
	assert.Equal(t, "system_health", alerts[0].Type)
	assert.Equal(t, SeverityCritical, alerts[0].Severity)
	assert.Empty(t, s.Snapshots(), "a failed collection records no snapshot")
}

func TestCollectorPanicIsContained(t *testing.T) {
	s := newTestService(&collectorStub{panics: true}, nil)

	assert.NotPanics(t, func() { s.Tick(context.Background()) })
	alerts := s.Alerts(false)
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Message, "panic")
}

func TestManualResolve(t *testing.T) {
	s := newTestService(&collectorStub{sample: Sample{APISuccessRate: 10, DataQualityScore: 100}}, nil)
	s.Tick(context.Background())

	alerts := s.Alerts(false)
	require.Len(t, alerts, 1)

	assert.True(t, s.ResolveAlert(alerts[0].ID))
	assert.False(t, s.ResolveAlert(alerts[0].ID), "double resolve is rejected")
	assert.Empty(t, s.Alerts(false))
}

func TestDashboardView(t *testing.T) {
	s := newTestService(&collectorStub{sample: Sample{APISuccessRate: 100, DataQualityScore: 40}}, nil)
	s.Tick(context.Background())

	d := s.DashboardView()
	require.NotNil(t, d.Latest)
	assert.Len(t, d.ActiveAlerts, 1)
	assert.Len(t, d.States, 2)
	assert.Equal(t, 1, d.SnapshotLen)
}

func TestSnapshotHistoryCap(t *testing.T) {
	th := DefaultThresholds()
	th.SnapshotHistory = 3
	th.AutoResolveLow = 0
	c := &collectorStub{sample: healthySample()}
	s := New(time.Minute, th, c.collect, nil, nil, nil)

	for i := 0; i < 5; i++ {
		s.Tick(context.Background())
	}
	assert.Len(t, s.Snapshots(), 3)
}
