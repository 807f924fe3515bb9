// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Trading metrics
	TradesExecuted *prometheus.CounterVec
	TradesFailed   *prometheus.CounterVec
	TradeLatency   *prometheus.HistogramVec

	// Price metrics
	PriceSourceFailures *prometheus.CounterVec
	PriceResolveLatency prometheus.Histogram

	// Pool metrics
	PoolRefreshes    *prometheus.CounterVec
	PoolQuoteLatency prometheus.Histogram

	// Snapshot metrics
	SnapshotsWritten prometheus.Counter
	SnapshotErrors   prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec

	// Health metrics
	LastSuccessfulTrade    prometheus.Gauge
	LastSuccessfulSnapshot prometheus.Gauge
	UptimeSeconds          prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "paper_trading"
	}

	return &Metrics{
		// Trading metrics
		TradesExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "trades_executed_total",
			Help:      "Total number of executed paper trades by direction",
		}, []string{"direction"}),
		TradesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "trades_failed_total",
			Help:      "Total number of failed trade attempts by direction and reason",
		}, []string{"direction", "reason"}),
		TradeLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "trade_latency_seconds",
			Help:      "End-to-end trade execution latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"direction"}),

		// Price metrics
		PriceSourceFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "price",
			Name:      "source_failures_total",
			Help:      "Total number of price source failures by source",
		}, []string{"source"}),
		PriceResolveLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "price",
			Name:      "resolve_latency_seconds",
			Help:      "Price resolution latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Pool metrics
		PoolRefreshes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "refreshes_total",
			Help:      "Total number of pool state refreshes by status",
		}, []string{"status"}),
		PoolQuoteLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "quote_latency_seconds",
			Help:      "Pool quote latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Snapshot metrics
		SnapshotsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshots",
			Name:      "written_total",
			Help:      "Total number of portfolio snapshots written",
		}),
		SnapshotErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshots",
			Name:      "errors_total",
			Help:      "Total number of portfolio snapshot write errors",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Health metrics
		LastSuccessfulTrade: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_trade_timestamp",
			Help:      "Unix timestamp of last executed trade",
		}),
		LastSuccessfulSnapshot: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_snapshot_timestamp",
			Help:      "Unix timestamp of last portfolio snapshot",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTradeExecuted records an executed trade and its latency.
func RecordTradeExecuted(direction string, seconds float64) {
	DefaultMetrics.TradesExecuted.WithLabelValues(direction).Inc()
	DefaultMetrics.TradeLatency.WithLabelValues(direction).Observe(seconds)
	DefaultMetrics.LastSuccessfulTrade.SetToCurrentTime()
}

// RecordTradeFailed records a failed trade attempt.
func RecordTradeFailed(direction, reason string) {
	DefaultMetrics.TradesFailed.WithLabelValues(direction, reason).Inc()
}

// RecordPriceSourceFailure records a price source failure.
func RecordPriceSourceFailure(source string) {
	DefaultMetrics.PriceSourceFailures.WithLabelValues(source).Inc()
}

// RecordPriceResolve records price resolution latency.
func RecordPriceResolve(seconds float64) {
	DefaultMetrics.PriceResolveLatency.Observe(seconds)
}

// RecordPoolRefresh records a pool state refresh.
func RecordPoolRefresh(err error) {
	if err != nil {
		DefaultMetrics.PoolRefreshes.WithLabelValues("error").Inc()
		return
	}
	DefaultMetrics.PoolRefreshes.WithLabelValues("ok").Inc()
}

// RecordPoolQuote records pool quote latency.
func RecordPoolQuote(seconds float64) {
	DefaultMetrics.PoolQuoteLatency.Observe(seconds)
}

// RecordSnapshot records a portfolio snapshot write.
func RecordSnapshot(err error) {
	if err != nil {
		DefaultMetrics.SnapshotErrors.Inc()
		return
	}
	DefaultMetrics.SnapshotsWritten.Inc()
	DefaultMetrics.LastSuccessfulSnapshot.SetToCurrentTime()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}
