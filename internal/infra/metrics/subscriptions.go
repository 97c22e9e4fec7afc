package metrics

import (
	"gym-membership/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		subscriptionTransitionsTotal,
		subscriptionsTotal,
	)
}

var (
	subscriptionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_transitions_total",
			Help: "Subscription lifecycle actions by outcome.",
		},
		[]string{"action", "result"}, // result: 'ok', 'rejected', 'error'
	)

	subscriptionsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "subscriptions_total",
			Help: "Current number of subscriptions by status.",
		},
		[]string{"status"},
	)
)

func IncSubscriptionTransition(action model.SubscriptionAction, result string) {
	subscriptionTransitionsTotal.WithLabelValues(norm(string(action)), norm(result)).Inc()
}

// SetSubscriptionsTotal sets every known status, zeroing the ones missing from counts.
func SetSubscriptionsTotal(counts map[model.SubscriptionStatus]int) {
	statuses := []model.SubscriptionStatus{
		model.SubscriptionStatusPending,
		model.SubscriptionStatusApproved,
		model.SubscriptionStatusRejected,
		model.SubscriptionStatusActive,
		model.SubscriptionStatusTerminated,
	}
	for _, status := range statuses {
		subscriptionsTotal.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}
