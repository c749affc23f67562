package paramgraph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	historiesBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paramgraph_histories_built_total",
		Help: "Parameter map histories built, by output usage.",
	}, []string{"usage"})

	compiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paramgraph_compiles_total",
		Help: "Script compiles, by usage and outcome.",
	}, []string{"usage", "status"})

	compileDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paramgraph_compile_duration_seconds",
		Help:    "Time spent compiling one script.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"usage"})

	autoBinds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paramgraph_auto_binds_total",
		Help: "Automatic input binding attempts, by result.",
	}, []string{"result"})

	snapshotsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "paramgraph_precompile_snapshots_active",
		Help: "Precompile snapshots currently held.",
	})
)
