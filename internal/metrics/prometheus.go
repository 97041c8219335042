package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus implements Collector on a private registry.
type Prometheus struct {
	transitions   *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
	injections    *prometheus.CounterVec
	fetches       *prometheus.CounterVec
	fallbacks     prometheus.Counter
	rejected      prometheus.Counter

	registry *prometheus.Registry
}

// NewPrometheus creates a collector whose metrics are prefixed with namespace.
func NewPrometheus(namespace string) *Prometheus {
	if namespace == "" {
		namespace = "loader"
	}

	p := &Prometheus{
		registry: prometheus.NewRegistry(),
	}

	p.transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_state_transitions_total",
			Help:      "Total number of injection session state transitions",
		},
		[]string{"from_state", "to_state"},
	)

	p.phaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_phase_duration_seconds",
			Help:      "Duration of injection session phases",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"phase", "status"},
	)

	p.injections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "injections_total",
			Help:      "Total number of finished injection sessions",
		},
		[]string{"strategy", "result"},
	)

	p.fetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Total number of payload and helper fetches",
		},
		[]string{"source", "status"},
	)

	p.fallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_fallbacks_total",
			Help:      "Total number of fetches that fell back to the secondary endpoint",
		},
	)

	p.rejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_rejected_total",
			Help:      "Total number of submissions refused while a session was in progress",
		},
	)

	p.registry.MustRegister(
		p.transitions,
		p.phaseDuration,
		p.injections,
		p.fetches,
		p.fallbacks,
		p.rejected,
	)

	return p
}

func (p *Prometheus) StateTransition(from, to string) {
	p.transitions.WithLabelValues(from, to).Inc()
}

func (p *Prometheus) PhaseDuration(phase string, d time.Duration, err error) {
	p.phaseDuration.WithLabelValues(phase, status(err)).Observe(d.Seconds())
}

func (p *Prometheus) InjectionFinished(strategy, result string) {
	p.injections.WithLabelValues(strategy, result).Inc()
}

func (p *Prometheus) FetchCompleted(source string, err error) {
	p.fetches.WithLabelValues(source, status(err)).Inc()
}

func (p *Prometheus) FetchFallback() {
	p.fallbacks.Inc()
}

func (p *Prometheus) SubmissionRejected() {
	p.rejected.Inc()
}

// Registry exposes the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
