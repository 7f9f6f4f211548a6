// Package monitoring exposes Prometheus collectors for the analysis
// pipeline. A nil *Metrics is valid and records nothing.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sells-group/viability-cli/internal/resilience"
)

const namespace = "viability"

// Outcome and result label values.
const (
	OutcomeOK    = "ok"
	ResultHit    = "hit"
	ResultMiss   = "miss"
	ResultError  = "error"
	PathModel    = "model"
	PathFallback = "fallback"
)

// DefaultPhaseBuckets covers sub-second scoring up to slow upstream phases.
var DefaultPhaseBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 20}

// Metrics holds the collectors for one registry.
type Metrics struct {
	Analyses         *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
	UpstreamRequests *prometheus.CounterVec
	Insights         *prometheus.CounterVec
	ReportWrites     *prometheus.CounterVec
	PhaseDuration    *prometheus.HistogramVec
	ViabilityScore   prometheus.Histogram
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analyses by outcome (ok or failure kind).",
		}, []string{"outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by result.",
		}, []string{"result"}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Places provider calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		Insights: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insights_total",
			Help:      "Insight packs by generation path.",
		}, []string{"path"}),
		ReportWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_writes_total",
			Help:      "Report store writes by outcome.",
		}, []string{"outcome"}),
		PhaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Pipeline phase durations.",
			Buckets:   DefaultPhaseBuckets,
		}, []string{"phase"}),
		ViabilityScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "viability_score",
			Help:      "Distribution of computed viability scores.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
	}
	reg.MustRegister(m.Analyses, m.CacheLookups, m.UpstreamRequests, m.Insights, m.ReportWrites, m.PhaseDuration, m.ViabilityScore)
	return m
}

// outcome labels err by its failure kind.
func outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	return string(resilience.KindOf(err))
}

// ObserveAnalysis counts a finished analysis.
func (m *Metrics) ObserveAnalysis(err error) {
	if m == nil {
		return
	}
	m.Analyses.WithLabelValues(outcome(err)).Inc()
}

// ObserveScore records a computed viability score.
func (m *Metrics) ObserveScore(score int) {
	if m == nil {
		return
	}
	m.ViabilityScore.Observe(float64(score))
}

// ObserveCache counts a cache lookup as hit, miss or error.
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveUpstream counts one provider call.
func (m *Metrics) ObserveUpstream(operation string, err error) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(operation, outcome(err)).Inc()
}

// ObserveInsights counts which path produced an insight pack.
func (m *Metrics) ObserveInsights(path string) {
	if m == nil {
		return
	}
	m.Insights.WithLabelValues(path).Inc()
}

// ObserveReportWrite counts a report store write.
func (m *Metrics) ObserveReportWrite(err error) {
	if m == nil {
		return
	}
	o := OutcomeOK
	if err != nil {
		o = ResultError
	}
	m.ReportWrites.WithLabelValues(o).Inc()
}

// ObservePhase records a phase duration.
func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}
