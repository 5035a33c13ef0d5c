package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetrics(t *testing.T, namespace string) *Metrics {
	t.Helper()
	m, err := New(namespace)
	require.NoError(t, err)
	return m
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ConnectionOpened()
		m.ConnectionClosed()
		m.EventHandled("next_step", time.Millisecond, nil)
		m.EventThrottled()
		m.StepChanged(2)
		m.ValidationFailed(1)
		m.Submitted(SubmitSent)
	})
	assert.Error(t, m.Expose(context.Background(), io.Discard))
	assert.Zero(t, m.Value("connections_active"))
}

func TestConnections(t *testing.T) {
	m := newMetrics(t, "tw")
	assert.Zero(t, m.Value("connections_active"))

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()

	assert.Equal(t, float64(1), m.Value("connections_active"))
	assert.Equal(t, float64(2), m.Value("connections_total"))
}

func TestEventHandled(t *testing.T) {
	m := newMetrics(t, "tw")
	m.EventHandled("next_step", 10*time.Millisecond, nil)
	m.EventHandled("next_step", 30*time.Millisecond, errors.New("boom"))
	m.EventHandled("submit", 20*time.Millisecond, nil)

	assert.Equal(t, float64(2), m.Value(`events_total{event="next_step"}`))
	assert.Equal(t, float64(1), m.Value(`events_total{event="submit"}`))
	assert.Equal(t, float64(1), m.Value(`event_errors_total{event="next_step"}`))
	assert.Zero(t, m.Value(`event_errors_total{event="submit"}`))

	assert.Equal(t, float64(3), m.Value("event_duration_seconds_count"))
	assert.InDelta(t, 0.06, m.Value("event_duration_seconds_sum"), 1e-9)
	assert.Equal(t, float64(1), m.Value(`event_duration_seconds_bucket{le="0.01"}`))
	assert.Equal(t, float64(3), m.Value(`event_duration_seconds_bucket{le="0.05"}`))
}

func TestStepChangesConcurrent(t *testing.T) {
	m := newMetrics(t, "tw")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.StepChanged(2)
		}()
	}
	wg.Wait()
	assert.Equal(t, float64(50), m.Value(`step_changes_total{step="2"}`))
}

func TestHandler(t *testing.T) {
	m := newMetrics(t, "teamwizard")
	m.ConnectionOpened()
	m.StepChanged(2)
	m.StepChanged(2)
	m.StepChanged(1)
	m.ValidationFailed(3)
	m.Submitted(SubmitRejected)
	m.Submitted(SubmitSent)
	m.EventHandled("update_field", 500*time.Millisecond, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")

	body := rec.Body.String()
	for _, line := range []string{
		"# HELP teamwizard_connections_active Open LiveView connections",
		"# TYPE teamwizard_connections_active gauge",
		"teamwizard_connections_active 1",
		"# TYPE teamwizard_connections_total counter",
		"teamwizard_connections_total 1",
		`teamwizard_step_changes_total{step="1"} 1`,
		`teamwizard_step_changes_total{step="2"} 2`,
		`teamwizard_validation_failures_total{step="3"} 1`,
		`teamwizard_submissions_total{result="rejected"} 1`,
		`teamwizard_submissions_total{result="sent"} 1`,
		`teamwizard_events_total{event="update_field"} 1`,
		"# TYPE teamwizard_event_duration_seconds histogram",
		`teamwizard_event_duration_seconds_bucket{le="0.1"} 0`,
		`teamwizard_event_duration_seconds_bucket{le="0.5"} 1`,
		`teamwizard_event_duration_seconds_bucket{le="+Inf"} 1`,
		"teamwizard_event_duration_seconds_sum 0.5",
		"teamwizard_event_duration_seconds_count 1",
		"teamwizard_events_throttled_total 0",
	} {
		assert.Contains(t, body, line+"\n")
	}
	assert.Less(t,
		strings.Index(body, `step_changes_total{step="1"}`),
		strings.Index(body, `step_changes_total{step="2"}`),
		"labels are sorted")
}
