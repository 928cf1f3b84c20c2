// Package metrics exposes the Prometheus instrumentation for a tournament
// run: trade throughput, strategy rejections, run duration, and a sandbox
// gas histogram.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TradesProcessed counts trades successfully executed against a pool.
	TradesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ammarena_trades_processed_total",
		Help: "Total number of trades executed across all pools",
	}, []string{"submission"})

	// StrategyRejections counts submissions rejected at validation,
	// compilation, or deployment.
	StrategyRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ammarena_strategy_rejections_total",
		Help: "Total number of submissions rejected, by stage",
	}, []string{"stage"})

	// SandboxGasUsed is the histogram for per-call gas consumption inside
	// the sandbox executor. No package in this repository records
	// observations into it.
	SandboxGasUsed = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ammarena_sandbox_gas_used",
		Help:    "Gas used per sandboxed strategy call",
		Buckets: prometheus.ExponentialBuckets(1000, 4, 10),
	}, []string{"method"})

	// RunDuration tracks wall-clock time for one full tournament run.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ammarena_run_duration_seconds",
		Help:    "Wall-clock duration of a full tournament run",
		Buckets: prometheus.DefBuckets,
	})
)
