package compute

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "isocurve"
	subsystem = "compute"
)

// Metrics holds prometheus metrics for builds and runs. A nil *Metrics
// records nothing.
type Metrics struct {
	buildsTotal        *prometheus.CounterVec
	buildDuration      prometheus.Histogram
	nodeFailuresTotal  *prometheus.CounterVec
	kernelsCompiled    prometheus.Counter
	kernelCacheHits    prometheus.Counter
	submitsTotal       prometheus.Counter
	dispatchesTotal    prometheus.Counter
	globalWritesTotal  prometheus.Counter
	globalUpdatesTotal *prometheus.CounterVec
}

// NewMetrics creates an unregistered metric set.
func NewMetrics() *Metrics {
	return &Metrics{
		buildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "builds_total",
				Help:      "Total number of graph builds.",
			},
			[]string{"result"}, // "success" or "cycle"
		),
		buildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "build_duration_seconds",
				Help:      "Graph build time in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 100µs to ~1.6s
			},
		),
		nodeFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "node_failures_total",
				Help:      "Total number of nodes that failed to build, by error kind.",
			},
			[]string{"kind"},
		),
		kernelsCompiled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "kernels_compiled_total",
				Help:      "Total number of kernels created on the device.",
			},
		),
		kernelCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "kernel_cache_hits_total",
				Help:      "Total number of kernels reused within a build.",
			},
		),
		submitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "submits_total",
				Help:      "Total number of batches submitted.",
			},
		),
		dispatchesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "dispatches_total",
				Help:      "Total number of kernel dispatches submitted.",
			},
		),
		globalWritesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "global_writes_total",
				Help:      "Total number of scalar writes to the globals buffer.",
			},
		),
		globalUpdatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "global_updates_total",
				Help:      "Total number of global updates.",
			},
			[]string{"result"}, // "changed" or "unchanged"
		),
	}
}

// MustRegister registers the metrics with the given Prometheus registry.
func (m *Metrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(
		m.buildsTotal,
		m.buildDuration,
		m.nodeFailuresTotal,
		m.kernelsCompiled,
		m.kernelCacheHits,
		m.submitsTotal,
		m.dispatchesTotal,
		m.globalWritesTotal,
		m.globalUpdatesTotal,
	)
}

func (m *Metrics) observeBuild(seconds float64, err error) {
	if m == nil {
		return
	}
	result := "success"
	switch {
	case IsUnrecoverable(err):
		result = "cycle"
	case err != nil:
		result = "error"
	}
	m.buildsTotal.WithLabelValues(result).Inc()
	m.buildDuration.Observe(seconds)
}

func (m *Metrics) nodeFailed(kind ErrorKind) {
	if m == nil {
		return
	}
	m.nodeFailuresTotal.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) kernelCreated(cached bool) {
	if m == nil {
		return
	}
	if cached {
		m.kernelCacheHits.Inc()
		return
	}
	m.kernelsCompiled.Inc()
}

func (m *Metrics) submitted(dispatches int) {
	if m == nil {
		return
	}
	m.submitsTotal.Inc()
	m.dispatchesTotal.Add(float64(dispatches))
}

func (m *Metrics) globalsUpdated(writes int) {
	if m == nil {
		return
	}
	result := "unchanged"
	if writes > 0 {
		result = "changed"
	}
	m.globalUpdatesTotal.WithLabelValues(result).Inc()
	m.globalWritesTotal.Add(float64(writes))
}
