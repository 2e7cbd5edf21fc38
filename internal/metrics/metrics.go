// Package metrics exposes Prometheus counters for calculations, baseline
// lookups and debounced autosave writes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Baseline lookup results
const (
	BaselineHit      = "hit"
	BaselineMiss     = "miss"
	BaselineNone     = "none"
	BaselineDegraded = "degraded"
)

// Autosave write results
const (
	AutosaveOK     = "ok"
	AutosaveFailed = "failed"
)

const namespace = "insights"

var (
	registry = prometheus.NewRegistry()

	calculations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "calculations_total",
		Help:      "Funnel diagnostics computed.",
	})

	baselineRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "baseline_requests_total",
		Help:      "Historical baseline lookups by result.",
	}, []string{"result"})

	autosaveWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "autosave_writes_total",
		Help:      "Debounced draft writes by result.",
	}, []string{"result"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		calculations,
		baselineRequests,
		autosaveWrites,
	)
}

func IncCalculations() {
	calculations.Inc()
}

func ObserveBaseline(result string) {
	baselineRequests.WithLabelValues(result).Inc()
}

func ObserveAutosave(result string) {
	autosaveWrites.WithLabelValues(result).Inc()
}

// Handler serves the private registry in the text exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
