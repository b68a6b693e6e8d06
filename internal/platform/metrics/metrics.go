package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	AuditEmitted        *prometheus.CounterVec
	AuditWriteFailures  prometheus.Counter
	GuardViolations     *prometheus.CounterVec
	ConsentDenials      *prometheus.CounterVec
	SuspensionDenials   prometheus.Counter
	ExportDownloads     *prometheus.CounterVec
	DeletionsRequested  prometheus.Counter
	DeletionsPurged     prometheus.Counter
	IncidentsCreated    *prometheus.CounterVec
	AlertFailures       *prometheus.CounterVec
	PolicyDenials       *prometheus.CounterVec
	TenantScopeDuration *prometheus.HistogramVec
}

// New creates and registers all collectors on reg. Pass
// prometheus.DefaultRegisterer in main and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AuditEmitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rgpd_audit_events_emitted_total",
			Help: "Audit events written, by event name",
		}, []string{"event_name"}),
		AuditWriteFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "rgpd_audit_write_failures_total",
			Help: "Audit sink write failures",
		}),
		GuardViolations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rgpd_guard_violations_total",
			Help: "Payloads rejected by the event guard, by source (log, audit, alert)",
		}, []string{"source"}),
		ConsentDenials: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rgpd_consent_denials_total",
			Help: "Consent gate denials by reason",
		}, []string{"reason"}),
		SuspensionDenials: f.NewCounter(prometheus.CounterOpts{
			Name: "rgpd_suspension_denials_total",
			Help: "Processing blocked by the suspension gate",
		}),
		ExportDownloads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rgpd_export_downloads_total",
			Help: "Export download attempts by outcome",
		}, []string{"outcome"}),
		DeletionsRequested: f.NewCounter(prometheus.CounterOpts{
			Name: "rgpd_deletions_requested_total",
			Help: "Erasure requests accepted",
		}),
		DeletionsPurged: f.NewCounter(prometheus.CounterOpts{
			Name: "rgpd_deletions_purged_total",
			Help: "Erasure requests hard purged",
		}),
		IncidentsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rgpd_incidents_created_total",
			Help: "Security incidents registered, by severity",
		}, []string{"severity"}),
		AlertFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rgpd_alert_failures_total",
			Help: "Alert deliveries that failed, by channel",
		}, []string{"channel"}),
		PolicyDenials: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rgpd_policy_denials_total",
			Help: "Authorization denials by action",
		}, []string{"action"}),
		TenantScopeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rgpd_scope_duration_seconds",
			Help:    "Duration of tenant and platform scoped transactions",
			Buckets: prometheus.DefBuckets,
		}, []string{"scope"}),
	}
}

func (m *Metrics) IncAuditEmitted(eventName string) {
	m.AuditEmitted.WithLabelValues(eventName).Inc()
}

func (m *Metrics) IncAuditWriteFailure() {
	m.AuditWriteFailures.Inc()
}

func (m *Metrics) IncGuardViolation(source string) {
	m.GuardViolations.WithLabelValues(source).Inc()
}

func (m *Metrics) IncConsentDenied(reason string) {
	m.ConsentDenials.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncSuspensionDenied() {
	m.SuspensionDenials.Inc()
}

func (m *Metrics) IncExportDownload(outcome string) {
	m.ExportDownloads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncDeletionRequested() {
	m.DeletionsRequested.Inc()
}

func (m *Metrics) IncDeletionPurged() {
	m.DeletionsPurged.Inc()
}

func (m *Metrics) IncIncidentCreated(severity string) {
	m.IncidentsCreated.WithLabelValues(severity).Inc()
}

func (m *Metrics) IncAlertFailure(channel string) {
	m.AlertFailures.WithLabelValues(channel).Inc()
}

func (m *Metrics) IncPolicyDenied(action string) {
	m.PolicyDenials.WithLabelValues(action).Inc()
}

func (m *Metrics) ObserveScope(scope string, seconds float64) {
	m.TenantScopeDuration.WithLabelValues(scope).Observe(seconds)
}
