package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountersByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncAuditEmitted("consent.granted")
	m.IncAuditEmitted("consent.granted")
	m.IncGuardViolation("log")
	m.IncConsentDenied("revoked")
	m.IncExportDownload("limit_exceeded")
	m.IncAlertFailure("pager")

	assert.InDelta(t, 2, testutil.ToFloat64(m.AuditEmitted.WithLabelValues("consent.granted")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.GuardViolations.WithLabelValues("log")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ConsentDenials.WithLabelValues("revoked")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ExportDownloads.WithLabelValues("limit_exceeded")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.AlertFailures.WithLabelValues("pager")), 0)
}

func TestNew_RegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.IncDeletionRequested()

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "rgpd_deletions_requested_total")

	assert.Panics(t, func() { New(reg) }, "registering twice on one registry must panic")
}
