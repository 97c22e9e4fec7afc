package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(adminActionsTotal) }

var adminActionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "admin_actions_total",
		Help: "Admin-only API actions by outcome.",
	},
	[]string{"action", "status"}, // status: 'ok', 'denied', 'failed'
)

func IncAdminAction(action, status string) {
	adminActionsTotal.WithLabelValues(norm(action), norm(status)).Inc()
}
