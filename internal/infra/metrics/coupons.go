package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(couponRedemptionsTotal) }

var couponRedemptionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "coupon_redemptions_total",
		Help: "Coupon applications by result.",
	},
	[]string{"result"}, // 'applied', 'not_found', 'ineligible', 'exhausted', 'released'
)

func IncCouponRedemption(result string) {
	couponRedemptionsTotal.WithLabelValues(norm(result)).Inc()
}
