package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentVerifyRequests,
		paymentVerifyDuration,
		paymentsRecorded,
	)
}

var (
	// result: ok|duplicate|fail
	// reason (fail only): not_found|not_completed|amount_mismatch|provider_unavailable|store_unavailable|unknown
	paymentVerifyRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_verify_requests_total",
			Help: "Count of payment verification calls by result and reason.",
		},
		[]string{"result", "reason"},
	)

	paymentVerifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_verify_duration_seconds",
			Help:    "Duration of payment verification in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"result"},
	)

	// trust: provider_verified|manual_override|test_mode
	paymentsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_recorded_total",
			Help: "Ledger writes by status and trust level.",
		},
		[]string{"status", "trust"},
	)
)

func IncPaymentVerify(result, reason string) {
	paymentVerifyRequests.WithLabelValues(result, reason).Inc()
}

func ObservePaymentVerify(result string, seconds float64) {
	paymentVerifyDuration.WithLabelValues(result).Observe(seconds)
}

func IncPaymentRecorded(status, trust string) {
	paymentsRecorded.WithLabelValues(status, trust).Inc()
}
