package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		sessionValidations,
		suspiciousSessions,
		sessionsExpired,
	)
}

var (
	// outcome: valid|cached|suspicious|expired|unknown_token
	sessionValidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_validations_total",
			Help: "Session validation calls by outcome.",
		},
		[]string{"outcome"},
	)

	suspiciousSessions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "suspicious_sessions_total",
			Help: "Sessions deactivated after a device signature mismatch.",
		},
	)

	sessionsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_expired_total",
			Help: "Sessions deactivated by the periodic expiry sweep.",
		},
	)
)

func IncSessionValidation(outcome string) {
	sessionValidations.WithLabelValues(outcome).Inc()
}

func IncSuspiciousSession() { suspiciousSessions.Inc() }

func AddSessionsExpired(n int) { sessionsExpired.Add(float64(n)) }
