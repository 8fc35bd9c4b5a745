package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preventive-care-server/internal/domain"
)

func TestObserveChecklist(t *testing.T) {
	m := New()
	checklist := &domain.Checklist{
		Recommendations: []domain.Recommendation{
			{ScreeningID: "a", Status: domain.DUE_NOW},
			{ScreeningID: "b", Status: domain.DUE_NOW},
			{ScreeningID: "c", Status: domain.UP_TO_DATE},
		},
	}

	m.ObserveChecklist(checklist, 3*time.Millisecond, false)
	m.ObserveChecklist(checklist, time.Millisecond, true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChecklistsComputed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Recommendations.WithLabelValues("DUE_NOW")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Recommendations.WithLabelValues("UP_TO_DATE")))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveChecklist(&domain.Checklist{}, time.Second, false)
		m.ObserveSnapshotFailure()
		m.ObserveRequest("GET", "/health", "200", time.Second)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveRequest("POST", "/api/v1/checklist", "200", 10*time.Millisecond)
	m.ObserveSnapshotFailure()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `http_requests_total{code="200",method="POST",route="/api/v1/checklist"} 1`)
	assert.Contains(t, string(body), "checklist_snapshot_failures_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewUsesIndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
