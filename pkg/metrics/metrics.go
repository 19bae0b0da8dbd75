package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AuditRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "univault_audit_records_total",
		Help: "Audit records persisted, by action severity.",
	}, []string{"severity"})

	AuditWriteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "univault_audit_write_failures_total",
		Help: "Audit record inserts that failed and were swallowed.",
	})

	EscalationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "univault_audit_escalations_total",
		Help: "Critical-severity alert dispatches attempted.",
	})

	EscalationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "univault_audit_escalation_failures_total",
		Help: "Critical-severity alert dispatches that failed.",
	})
)
