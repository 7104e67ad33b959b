package consensus

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "rounds"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Height of the last processed block.
	Height metrics.Gauge
	// Count of the active round instance.
	RoundCount metrics.Gauge
	// Number of participants that submitted in the active round.
	Submissions metrics.Gauge
	// Number of ended rounds, by round type and event.
	RoundsEnded metrics.Counter
	// Number of rejected payloads, by reason.
	RejectedPayloads metrics.Counter
	// Number of injected timeouts.
	Timeouts metrics.Counter
	// Block time spent in the last ended round, in seconds.
	RoundDuration metrics.Histogram
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		Height: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "height",
			Help:      "Height of the last processed block.",
		}, labels).With(labelsAndValues...),
		RoundCount: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "round_count",
			Help:      "Count of the active round instance.",
		}, labels).With(labelsAndValues...),
		Submissions: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "submissions",
			Help:      "Number of participants that submitted in the active round.",
		}, labels).With(labelsAndValues...),
		RoundsEnded: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "ended_total",
			Help:      "Number of ended rounds.",
		}, append(labels, "round_type", "event")).With(labelsAndValues...),
		RejectedPayloads: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "rejected_payloads_total",
			Help:      "Number of rejected payloads.",
		}, append(labels, "reason")).With(labelsAndValues...),
		Timeouts: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "timeouts_total",
			Help:      "Number of injected round timeouts.",
		}, labels).With(labelsAndValues...),
		RoundDuration: prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "duration_seconds",
			Help:      "Block time spent in a round.",
			Buckets:   stdprometheus.ExponentialBuckets(1, 2, 8),
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Height:           discard.NewGauge(),
		RoundCount:       discard.NewGauge(),
		Submissions:      discard.NewGauge(),
		RoundsEnded:      discard.NewCounter(),
		RejectedPayloads: discard.NewCounter(),
		Timeouts:         discard.NewCounter(),
		RoundDuration:    discard.NewHistogram(),
	}
}
