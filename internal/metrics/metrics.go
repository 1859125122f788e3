package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for order transitions and notification delivery
var (
	OrderTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Total number of order transition attempts by transition and outcome",
		},
		[]string{"transition", "outcome"},
	)

	SettlementsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Total number of payouts marked as transferred",
		},
	)

	NotificationsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Total number of persisted in-app notifications by event type",
		},
		[]string{"type"},
	)

	EmailsSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Total number of emails handed to the email provider",
		},
	)

	EmailsFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "emails_failed_total",
			Help: "Total number of email sends that failed or were dropped",
		},
	)
)

// Register registers all Prometheus metrics
func Register() {
	prometheus.MustRegister(OrderTransitionsTotal)
	prometheus.MustRegister(SettlementsTotal)
	prometheus.MustRegister(NotificationsCreatedTotal)
	prometheus.MustRegister(EmailsSentTotal)
	prometheus.MustRegister(EmailsFailedTotal)
}
