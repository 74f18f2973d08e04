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
	// Execution metrics
	SwapsExecuted  *prometheus.CounterVec
	SwapsFailed    *prometheus.CounterVec
	SwapLatency    prometheus.Histogram
	FeesCollected  prometheus.Counter
	WalletLockWait prometheus.Histogram
	WalletBusy     prometheus.Counter

	// Quote metrics
	QuotesFetched prometheus.Counter
	QuoteErrors   prometheus.Counter

	// Scanner metrics
	PoolsScanned  prometheus.Counter
	SnipesMatched prometheus.Counter
	SnipeOutcomes *prometheus.CounterVec

	// Mirror metrics
	MirrorSwapsDetected prometheus.Counter
	MirrorSwapsReplayed prometheus.Counter

	// Referral metrics
	ReferralCredits prometheus.Counter

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulScan prometheus.Gauge
	UptimeSeconds      prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_trade_engine"
	}

	return &Metrics{
		// Execution metrics
		SwapsExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "swaps_executed_total",
			Help:      "Total number of swaps executed by origin",
		}, []string{"origin"}),
		SwapsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "swaps_failed_total",
			Help:      "Total number of failed swap executions by reason",
		}, []string{"reason"}),
		SwapLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "swap_latency_seconds",
			Help:      "End-to-end swap execution latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		FeesCollected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "fees_collected_lamports_total",
			Help:      "Total trade fees collected in lamports",
		}),
		WalletLockWait: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "wallet_lock_wait_seconds",
			Help:      "Time spent waiting for the per-wallet lock in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		WalletBusy: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "wallet_busy_total",
			Help:      "Total number of executions rejected because the wallet was busy",
		}),

		// Quote metrics
		QuotesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "quotes_fetched_total",
			Help:      "Total number of quotes fetched",
		}),
		QuoteErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "quote_errors_total",
			Help:      "Total number of quote failures",
		}),

		// Scanner metrics
		PoolsScanned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "pools_scanned_total",
			Help:      "Total number of new pools scanned",
		}),
		SnipesMatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "snipes_matched_total",
			Help:      "Total number of snipe jobs matched to a pool",
		}),
		SnipeOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "snipe_outcomes_total",
			Help:      "Total number of snipe attempts by outcome",
		}, []string{"outcome"}),

		// Mirror metrics
		MirrorSwapsDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "swaps_detected_total",
			Help:      "Total number of swaps detected on tracked wallets",
		}),
		MirrorSwapsReplayed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "swaps_replayed_total",
			Help:      "Total number of swaps replayed for subscribers",
		}),

		// Referral metrics
		ReferralCredits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "referral",
			Name:      "credits_total",
			Help:      "Total number of referral credits applied",
		}),

		// Latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

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

		// Health metrics
		LastSuccessfulScan: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_scan_timestamp",
			Help:      "Unix timestamp of last successful scanner cycle",
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

// RecordSwapExecuted records a completed swap with its fee.
func RecordSwapExecuted(origin string, feeLamports uint64, seconds float64) {
	DefaultMetrics.SwapsExecuted.WithLabelValues(origin).Inc()
	DefaultMetrics.FeesCollected.Add(float64(feeLamports))
	DefaultMetrics.SwapLatency.Observe(seconds)
}

// RecordSwapFailed records a failed swap execution.
func RecordSwapFailed(reason string) {
	DefaultMetrics.SwapsFailed.WithLabelValues(reason).Inc()
}

// RecordWalletLockWait records time spent waiting for a wallet lock.
func RecordWalletLockWait(seconds float64) {
	DefaultMetrics.WalletLockWait.Observe(seconds)
}

// RecordWalletBusy increments the wallet-busy rejection counter.
func RecordWalletBusy() {
	DefaultMetrics.WalletBusy.Inc()
}

// RecordQuote records a quote attempt.
func RecordQuote(err error) {
	DefaultMetrics.QuotesFetched.Inc()
	if err != nil {
		DefaultMetrics.QuoteErrors.Inc()
	}
}

// RecordPoolScanned increments the pools scanned counter.
func RecordPoolScanned() {
	DefaultMetrics.PoolsScanned.Inc()
}

// RecordSnipeMatched increments the snipe match counter.
func RecordSnipeMatched() {
	DefaultMetrics.SnipesMatched.Inc()
}

// RecordSnipeOutcome records a snipe attempt outcome.
func RecordSnipeOutcome(outcome string) {
	DefaultMetrics.SnipeOutcomes.WithLabelValues(outcome).Inc()
}

// RecordMirrorDetected increments the mirror detection counter.
func RecordMirrorDetected() {
	DefaultMetrics.MirrorSwapsDetected.Inc()
}

// RecordMirrorReplayed increments the mirror replay counter.
func RecordMirrorReplayed() {
	DefaultMetrics.MirrorSwapsReplayed.Inc()
}

// RecordReferralCredit increments the referral credit counter.
func RecordReferralCredit() {
	DefaultMetrics.ReferralCredits.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordScanCycle marks a successful scanner cycle.
func RecordScanCycle(unixTime int64) {
	DefaultMetrics.LastSuccessfulScan.Set(float64(unixTime))
}
