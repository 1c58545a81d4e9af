// README: Prometheus metrics for the order lifecycle and dispatch engine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kedai_order_transitions_total",
			Help: "Accepted order status transitions by target status",
		},
		[]string{"to_status"},
	)

	ClaimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kedai_courier_claims_total",
			Help: "Courier self-service claim attempts by outcome",
		},
		[]string{"outcome"},
	)

	OTPVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kedai_otp_verifications_total",
			Help: "COD verification attempts by result",
		},
		[]string{"result"},
	)

	NotificationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kedai_notifications_total",
			Help: "Notification rows written by the side-effect dispatcher",
		},
	)
)

// Register registers all engine metrics on the default registry.
func Register() {
	prometheus.MustRegister(TransitionsTotal)
	prometheus.MustRegister(ClaimsTotal)
	prometheus.MustRegister(OTPVerificationsTotal)
	prometheus.MustRegister(NotificationsTotal)
}
