package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordGuard("user", "require_auth", "redirect")
	m.RecordGuard("user", "require_auth", "redirect")
	m.RecordHydration("admin", "absent")
	m.RecordLogout("user", "failed")
	m.RecordRequest("/login", "GET", 200, 5*time.Millisecond)
	m.RecordError("/api/user/login", "POST", "ACCOUNT_BLOCKED")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.guards.WithLabelValues("user", "require_auth", "redirect")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.hydrations.WithLabelValues("admin", "absent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logouts.WithLabelValues("user", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/login", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("POST", "/api/user/login", "ACCOUNT_BLOCKED")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordGuard("user", "require_auth", "render")
		m.RecordHydration("user", "authenticated")
		m.RecordLogout("user", "ok")
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "INTERNAL_ERROR")
	})
	assert.Nil(t, m.Registry())
}
