package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(auditWrites, auditWriteFailures) }

var (
	auditWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_total",
			Help: "Audit events appended, by action.",
		},
		[]string{"action"},
	)

	auditWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_write_failures_total",
			Help: "Audit events that could not be persisted.",
		},
	)
)

func IncAuditWrite(action string) { auditWrites.WithLabelValues(action).Inc() }

func IncAuditWriteFailure() { auditWriteFailures.Inc() }
