package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RegistriesInitialized prometheus.Counter
	ReportsSubmitted      prometheus.Counter
	ReportsUpdated        prometheus.Counter
	ReportRiskScores      prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		RegistriesInitialized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tokensafe_registries_initialized_total",
			Help: "Total number of authority registries initialized",
		}),
		ReportsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tokensafe_reports_submitted_total",
			Help: "Total number of safety reports submitted",
		}),
		ReportsUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tokensafe_reports_updated_total",
			Help: "Total number of safety report updates",
		}),
		ReportRiskScores: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tokensafe_report_risk_score",
			Help:    "Distribution of submitted risk scores (higher = safer)",
			Buckets: []float64{10, 25, 50, 75, 90, 100},
		}),
	}
}

func (m *Metrics) IncrementRegistriesInitialized() {
	if m == nil {
		return
	}
	m.RegistriesInitialized.Inc()
}

func (m *Metrics) ObserveReportSubmitted(riskScore uint8) {
	if m == nil {
		return
	}
	m.ReportsSubmitted.Inc()
	m.ReportRiskScores.Observe(float64(riskScore))
}

func (m *Metrics) ObserveReportUpdated(riskScore uint8) {
	if m == nil {
		return
	}
	m.ReportsUpdated.Inc()
	m.ReportRiskScores.Observe(float64(riskScore))
}
