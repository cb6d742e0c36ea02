// Package prometheus exports casredis hook events as Prometheus metrics.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/casredis"
)

// Default histogram buckets for latency metrics (in seconds).
var defaultBuckets = []float64{
	.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1,
}

// Hooks implements casredis.Hooks with Prometheus collectors.
type Hooks struct {
	opDuration    *prometheus.HistogramVec
	opErrors      *prometheus.CounterVec
	reads         *prometheus.CounterVec
	decodeFailed  prometheus.Counter
	scriptsLoaded prometheus.Counter
	scriptsReset  *prometheus.CounterVec
	flushRemoved  *prometheus.CounterVec
	flushErrors   *prometheus.CounterVec
}

var _ casredis.Hooks = (*Hooks)(nil)

// New registers the collectors on reg under the given namespace
// (e.g. "casredis").
func New(reg prometheus.Registerer, namespace string) *Hooks {
	h := &Hooks{
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "op_duration_seconds",
			Help:      "Cache operation latency in seconds",
			Buckets:   defaultBuckets,
		}, []string{"op"}),

		opErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "op_errors_total",
			Help:      "Cache operations that returned an error",
		}, []string{"op"}),

		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reads_total",
			Help:      "Key reads by outcome",
		}, []string{"state"}),

		decodeFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Stored values that could not be decoded and were reported as misses",
		}),

		scriptsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "script_loads_total",
			Help:      "Successful CAS script registrations",
		}),

		scriptsReset: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "script_resets_total",
			Help:      "CAS script registry resets",
		}, []string{"reason"}),

		flushRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flush_removed_keys_total",
			Help:      "Keys removed by FlushAll per method",
		}, []string{"method"}),

		flushErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flush_node_errors_total",
			Help:      "Nodes that failed during FlushAll",
		}, []string{"addr"}),
	}

	reg.MustRegister(
		h.opDuration,
		h.opErrors,
		h.reads,
		h.decodeFailed,
		h.scriptsLoaded,
		h.scriptsReset,
		h.flushRemoved,
		h.flushErrors,
	)
	return h
}

func (h *Hooks) Op(op string, took time.Duration, err error) {
	h.opDuration.WithLabelValues(op).Observe(took.Seconds())
	if err != nil {
		h.opErrors.WithLabelValues(op).Inc()
	}
}

func (h *Hooks) Read(s casredis.State) { h.reads.WithLabelValues(s.String()).Inc() }

func (h *Hooks) DecodeFailed(string, error) { h.decodeFailed.Inc() }

func (h *Hooks) ScriptsLoaded(int) { h.scriptsLoaded.Inc() }

func (h *Hooks) ScriptsReset(reason string) { h.scriptsReset.WithLabelValues(reason).Inc() }

func (h *Hooks) FlushNode(r casredis.NodeResult) {
	h.flushRemoved.WithLabelValues(string(r.Method)).Add(float64(r.Removed))
	if r.Err != nil {
		h.flushErrors.WithLabelValues(r.Addr).Inc()
	}
}
