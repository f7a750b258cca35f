// Package metrics exposes editor and generation statistics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Namespace = "mindmap"

const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Collector holds all metrics on its own registry so that several
// collectors can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	Edits           *prometheus.CounterVec
	LayoutPasses    prometheus.Counter
	StreamFragments *prometheus.CounterVec
	StreamOutcomes  *prometheus.CounterVec
	StreamDuration  *prometheus.HistogramVec
	MalformedFrames *prometheus.CounterVec
	PersistenceOps  *prometheus.CounterVec
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Edits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "edits_total",
			Help:      "Edit commands by operation and outcome",
		}, []string{"op", "outcome"}),
		LayoutPasses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "layout_passes_total",
			Help:      "Debounced layout passes applied",
		}),
		StreamFragments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "stream_fragments_total",
			Help:      "Text fragments received from completion streams",
		}, []string{"provider"}),
		StreamOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "stream_outcomes_total",
			Help:      "Completion streams by terminal outcome",
		}, []string{"provider", "outcome"}),
		StreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "stream_duration_seconds",
			Help:      "Completion stream duration",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}, []string{"provider"}),
		MalformedFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "malformed_frames_total",
			Help:      "Stream frames skipped because they could not be decoded",
		}, []string{"provider"}),
		PersistenceOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "persistence_ops_total",
			Help:      "Document store calls by operation and outcome",
		}, []string{"op", "outcome"}),
	}

	c.registry.MustRegister(
		c.Edits,
		c.LayoutPasses,
		c.StreamFragments,
		c.StreamOutcomes,
		c.StreamDuration,
		c.MalformedFrames,
		c.PersistenceOps,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Edit records one edit command. Rejected commands are expected user
// errors, not failures.
func (c *Collector) Edit(op string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeRejected
	}
	c.Edits.WithLabelValues(op, outcome).Inc()
}

func (c *Collector) LayoutPass() {
	c.LayoutPasses.Inc()
}

func (c *Collector) Persistence(op string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeFailed
	}
	c.PersistenceOps.WithLabelValues(op, outcome).Inc()
}

func (c *Collector) Fragment(provider string) {
	c.StreamFragments.WithLabelValues(provider).Inc()
}

func (c *Collector) Malformed(provider string) {
	c.MalformedFrames.WithLabelValues(provider).Inc()
}

func (c *Collector) Finished(provider, outcome string, d time.Duration) {
	c.StreamOutcomes.WithLabelValues(provider, outcome).Inc()
	c.StreamDuration.WithLabelValues(provider).Observe(d.Seconds())
}
