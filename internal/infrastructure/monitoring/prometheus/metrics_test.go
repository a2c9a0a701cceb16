package prometheus

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)

	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
	metric:
		for _, met := range fam.GetMetric() {
			got := map[string]string{}
			for _, lp := range met.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue metric
				}
			}
			return met.GetCounter().GetValue()
		}
	}
	return 0
}

func TestRecordPlanAnalysis(t *testing.T) {
	m := NewMetrics()

	m.RecordPlanAnalysis(50*time.Millisecond, nil)
	m.RecordPlanAnalysis(time.Second, errors.New("boom"))
	m.RecordPlanAnalysis(10*time.Millisecond, nil)

	assert.Equal(t, 2.0, counterValue(t, m, "rtbioeval_plans_analyzed_total",
		map[string]string{"outcome": "ok"}))
	assert.Equal(t, 1.0, counterValue(t, m, "rtbioeval_plans_analyzed_total",
		map[string]string{"outcome": "failed"}))
}

func TestRecordHTTPRequest(t *testing.T) {
	m := NewMetrics()

	m.RecordHTTPRequest("POST", "/api/v1/analyze", 200, 120*time.Millisecond)
	m.RecordHTTPRequest("POST", "/api/v1/analyze", 400, 5*time.Millisecond)

	assert.Equal(t, 1.0, counterValue(t, m, "rtbioeval_http_requests_total",
		map[string]string{"method": "POST", "path": "/api/v1/analyze", "status": "200"}))
	assert.Equal(t, 1.0, counterValue(t, m, "rtbioeval_http_requests_total",
		map[string]string{"method": "POST", "path": "/api/v1/analyze", "status": "400"}))
}

func TestHandlerServesScrape(t *testing.T) {
	m := NewMetrics()
	m.PipelineRuns.WithLabelValues("ok").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "rtbioeval_pipeline_runs_total")
}

func TestIsolatedRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()
	a.PatientsSkipped.WithLabelValues("parse_error").Inc()

	assert.Equal(t, 1.0, counterValue(t, a, "rtbioeval_patients_skipped_total",
		map[string]string{"reason": "parse_error"}))
	assert.Equal(t, 0.0, counterValue(t, b, "rtbioeval_patients_skipped_total",
		map[string]string{"reason": "parse_error"}))
}
