package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// promauto registers everything against the default registry; the API
// server exposes it at /metrics.

var (
	TxnTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cellgraph_txn_total",
		Help: "Total number of store transactions opened",
	})

	TxnConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cellgraph_txn_conflicts_total",
		Help: "Transactions that hit an optimistic-concurrency conflict at commit",
	})

	TxnRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cellgraph_txn_retries_total",
		Help: "Transaction closures re-run after a retryable failure",
	})

	CellReads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cellgraph_cell_reads_total",
		Help: "Cells read from the storage engine",
	})

	CellWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cellgraph_cell_writes_total",
		Help: "Cells written to the storage engine",
	})

	LinksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cellgraph_links_total",
		Help: "Edges linked through the graph layer",
	})

	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cellgraph_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cellgraph_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
)
