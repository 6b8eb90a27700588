package metricsvc

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core/notification"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Delivered(notification.SMS)
	m.Delivered(notification.SMS)
	m.Failed(notification.Email)
	m.Suppressed(notification.SMS)
	m.JobRun("monthly_absence", nil)
	m.JobRun("monthly_absence", errors.New("db down"))
	m.ObserveRequest("POST", "/api/v1/marks", 200, 15*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.notifications.WithLabelValues("sms", "delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("email", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("sms", "suppressed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("monthly_absence", "error")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), `shule_notifications_total{channel="sms",outcome="delivered"} 2`))
	assert.True(t, strings.Contains(string(body), `shule_http_request_duration_seconds_count{method="POST",route="/api/v1/marks",status="200"} 1`))
}
