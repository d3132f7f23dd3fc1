package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	job := "subscription_expiry"

	m.ObserveDuration(job, 250*time.Millisecond)
	m.IncSuccess(job)
	m.IncFailure(job)
	m.AddAffected(job, 3)
	m.AddAffected(job, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.success.WithLabelValues(job)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failure.WithLabelValues(job)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.affected.WithLabelValues(job)))

	count, err := testutil.GatherAndCount(reg, "portal_job_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNilRegistererIsNoop(t *testing.T) {
	cron := NewCronJobMetrics(nil)
	cron.IncSuccess("x")
	cron.ObserveDuration("x", time.Second)

	var hooks *WebhookMetrics
	hooks.Observe("stripe", OutcomeProcessed)
	NewWebhookMetrics(nil).Observe("stripe", OutcomeProcessed)

	NewQuotaMetrics(nil).IncScan()
}

func TestWebhookMetricsLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebhookMetrics(reg)
	m.Observe("square", OutcomeRejected)
	m.Observe("square", OutcomeRejected)
	m.Observe("", OutcomeProcessed)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("square", OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("unknown", OutcomeProcessed)))
}

func TestQuotaMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewQuotaMetrics(reg)
	m.IncScan()
	m.IncExceeded()
	m.IncExceeded()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.scans))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.exceeded))
}
