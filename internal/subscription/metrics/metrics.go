package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SubscriptionsCreated *prometheus.CounterVec
	SubscriptionsRenewed *prometheus.CounterVec
	RevenueCollected     prometheus.Counter
	Verifications        *prometheus.CounterVec
	PricingUpdates       prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		SubscriptionsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tokensafe_subscriptions_created_total",
			Help: "Total number of first-time subscriptions by tier",
		}, []string{"tier"}),
		SubscriptionsRenewed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tokensafe_subscriptions_renewed_total",
			Help: "Total number of subscription renewals by tier",
		}, []string{"tier"}),
		RevenueCollected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tokensafe_subscription_revenue_total",
			Help: "Total revenue collected across subscribe and renew, in native units",
		}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tokensafe_subscription_verifications_total",
			Help: "Total entitlement verifications by outcome",
		}, []string{"outcome"}),
		PricingUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tokensafe_pricing_updates_total",
			Help: "Total number of admin pricing updates",
		}),
	}
}

func (m *Metrics) ObserveSubscribed(tier string, price uint64) {
	if m == nil {
		return
	}
	m.SubscriptionsCreated.WithLabelValues(tier).Inc()
	m.RevenueCollected.Add(float64(price))
}

func (m *Metrics) ObserveRenewed(tier string, price uint64) {
	if m == nil {
		return
	}
	m.SubscriptionsRenewed.WithLabelValues(tier).Inc()
	m.RevenueCollected.Add(float64(price))
}

func (m *Metrics) ObserveVerification(ok bool) {
	if m == nil {
		return
	}
	outcome := "denied"
	if ok {
		outcome = "granted"
	}
	m.Verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementPricingUpdates() {
	if m == nil {
		return
	}
	m.PricingUpdates.Inc()
}
