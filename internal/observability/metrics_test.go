package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountersAdvance(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("/api/complaints", "GET", 200, 5*time.Millisecond)
	m.RecordRequest("/api/complaints", "GET", 200, 7*time.Millisecond)
	m.Transition("pending", "in_progress")
	m.Denial("resolve", "solved_forbidden")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/complaints", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("pending", "in_progress")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.denials.WithLabelValues("resolve", "solved_forbidden")))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "NOT_FOUND")
		m.ComplaintCreated("Water")
		m.Transition("pending", "solved")
		m.Denial("edit_complaint", "not_owner")
		m.NotificationSent("email", "complaint.created")
	})
}
