package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		usersRegisteredTotal,
		notificationsTotal,
		rateLimitTriggeredTotal,
	)
}

var (
	usersRegisteredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "users_registered_total",
			Help: "Total number of new members registered.",
		},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_notifications_total",
			Help: "Admin notifications by delivery result.",
		},
		[]string{"result"}, // 'sent', 'failed', 'dropped'
	)

	rateLimitTriggeredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_triggered_total",
			Help: "Requests refused by a rate limiter.",
		},
		[]string{"scope"}, // 'login', 'transaction'
	)
)

func IncUserRegistered() { usersRegisteredTotal.Inc() }

func IncNotification(result string) {
	notificationsTotal.WithLabelValues(norm(result)).Inc()
}

func IncRateLimitTriggered(scope string) {
	rateLimitTriggeredTotal.WithLabelValues(norm(scope)).Inc()
}
