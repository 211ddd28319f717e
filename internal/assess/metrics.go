package assess

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the assessment subsystem.
type Metrics struct {
	AssessmentsTotal   *prometheus.CounterVec
	AssessmentDuration *prometheus.HistogramVec
	ProviderCallsTotal *prometheus.CounterVec
	ProviderDuration   *prometheus.HistogramVec
	FusionRuleTotal    *prometheus.CounterVec
}

// NewMetrics registers and returns assessment metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AssessmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "infrasense_assessments_total",
			Help: "Total assessments by outcome and final severity.",
		}, []string{"outcome", "final_severity"}),
		AssessmentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "infrasense_assessment_duration_seconds",
			Help:    "End-to-end duration of assessments in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms .. ~10s
		}, []string{"outcome"}),
		ProviderCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "infrasense_provider_calls_total",
			Help: "Total provider predictions by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "infrasense_provider_duration_seconds",
			Help:    "Duration of provider predictions in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms .. ~8s
		}, []string{"provider", "outcome"}),
		FusionRuleTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "infrasense_fusion_rule_total",
			Help: "Fusion decisions by the rule that produced them.",
		}, []string{"rule"}),
	}

	reg.MustRegister(
		m.AssessmentsTotal,
		m.AssessmentDuration,
		m.ProviderCallsTotal,
		m.ProviderDuration,
		m.FusionRuleTotal,
	)

	return m
}

// Hooks returns Assembler hooks that update the corresponding metrics.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnProvider: func(provider string, duration float64, err error) {
			outcome := outcomeSuccess
			if err != nil {
				outcome = outcomeError
			}
			m.ProviderCallsTotal.WithLabelValues(provider, outcome).Inc()
			m.ProviderDuration.WithLabelValues(provider, outcome).Observe(duration)
		},
		OnComplete: func(e *CompleteEvent) {
			final := ""
			if e.Outcome == outcomeSuccess {
				final = e.Final.String()
				m.FusionRuleTotal.WithLabelValues(string(e.Rule)).Inc()
			}
			m.AssessmentsTotal.WithLabelValues(e.Outcome, final).Inc()
			m.AssessmentDuration.WithLabelValues(e.Outcome).Observe(e.Duration)
		},
	}
}
