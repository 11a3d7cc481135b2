package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tooltable_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// NodeMutations counts node writes by action (create|update|move|reorder|delete|import).
	NodeMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tooltable_node_mutations_total",
			Help: "Total number of node mutations",
		},
		[]string{"action"},
	)

	// CodeRetries counts duplicate-key collisions absorbed by the code generator.
	CodeRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tooltable_code_generation_retries_total",
			Help: "Duplicate code collisions retried during node insertion",
		},
	)

	// SearchQueries counts searches by outcome (hit|miss|empty).
	SearchQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tooltable_search_queries_total",
			Help: "Total number of search queries",
		},
		[]string{"outcome"},
	)

	// CodeDrift tracks nodes whose code no longer matches their parent chain.
	CodeDrift = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tooltable_code_drift_nodes",
			Help: "Nodes whose code does not derive from their parent's code",
		},
	)

	// DanglingIcons tracks nodes referencing icon files missing on disk.
	DanglingIcons = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tooltable_dangling_icon_nodes",
			Help: "Nodes referencing icons that do not exist",
		},
	)
)
