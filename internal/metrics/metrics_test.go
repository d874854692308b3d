package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestCollectors(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodPost, "/api/survey/{token}/submit", 200, 30*time.Millisecond)
	m.ObserveRequest(http.MethodPost, "/api/survey/{token}/submit", 409, time.Millisecond)
	m.ObserveSubmission("success")
	m.ObserveSubmission("already_completed")
	m.ObserveSubmission("success")
	m.ObserveReminders(3, 1, 0)

	body := scrape(t, m)
	assert.Contains(t, body, `compass_survey_submissions_total{outcome="success"} 2`)
	assert.Contains(t, body, `compass_survey_submissions_total{outcome="already_completed"} 1`)
	assert.Contains(t, body, `compass_http_requests_total{method="POST",route="/api/survey/{token}/submit",status="409"} 1`)
	assert.Contains(t, body, `compass_reminders_total{result="sent"} 3`)
	assert.Contains(t, body, "go_goroutines")
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.ObserveSubmission("success")
	assert.NotContains(t, scrape(t, b), `compass_survey_submissions_total{outcome="success"}`)
}
