// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Scout metrics
	CyclesTotal      *prometheus.CounterVec
	CycleDuration    prometheus.Histogram
	PairsScouted     prometheus.Counter
	PairsSkipped     *prometheus.CounterVec
	BestScore        prometheus.Gauge
	ThresholdsSet    prometheus.Counter
	LowProgressPairs prometheus.Gauge

	// Trading metrics
	JumpsTotal      *prometheus.CounterVec
	ResetsTotal     *prometheus.CounterVec
	BridgePurchases prometheus.Counter
	ValuesRecorded  prometheus.Counter

	// Exchange metrics
	ExchangeCallLatency *prometheus.HistogramVec
	ExchangeCallErrors  *prometheus.CounterVec
	PriceUpdates        prometheus.Counter
	StreamReconnects    prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	PruneRuns       *prometheus.CounterVec

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
	LastJump            prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "altcoin_jumper"
	}

	return &Metrics{
		// Scout metrics
		CyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scout",
			Name:      "cycles_total",
			Help:      "Total number of scout cycles by status",
		}, []string{"status"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scout",
			Name:      "cycle_duration_seconds",
			Help:      "Scout cycle duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		PairsScouted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scout",
			Name:      "pairs_scouted_total",
			Help:      "Total number of pairs evaluated by the ratio engine",
		}),
		PairsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scout",
			Name:      "pairs_skipped_total",
			Help:      "Total number of pairs skipped by reason",
		}, []string{"reason"}),
		BestScore: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scout",
			Name:      "best_score",
			Help:      "Highest score observed in the last evaluation of the held coin",
		}),
		ThresholdsSet: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scout",
			Name:      "thresholds_set_total",
			Help:      "Total number of pair ratios initialized",
		}),
		LowProgressPairs: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scout",
			Name:      "low_progress_pairs",
			Help:      "Pairs below the progress threshold in the last evaluation",
		}),

		// Trading metrics
		JumpsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "jumps_total",
			Help:      "Total number of jump attempts by outcome",
		}, []string{"outcome"}),
		ResetsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "resets_total",
			Help:      "Total number of ratio resets by trigger",
		}, []string{"trigger"}),
		BridgePurchases: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "bridge_purchases_total",
			Help:      "Total number of coins bought with idle bridge funds",
		}),
		ValuesRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "values_recorded_total",
			Help:      "Total number of coin value snapshots recorded",
		}),

		// Exchange metrics
		ExchangeCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "call_latency_seconds",
			Help:      "Exchange API call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		ExchangeCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "call_errors_total",
			Help:      "Total number of failed exchange API calls",
		}, []string{"method"}),
		PriceUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "price_updates_total",
			Help:      "Total number of ticker updates received from the price stream",
		}),
		StreamReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "stream_reconnects_total",
			Help:      "Total number of price stream reconnects",
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
		PruneRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "prune_runs_total",
			Help:      "Total number of retention prune runs by table",
		}, []string{"table"}),

		// Health metrics
		LastSuccessfulCycle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of last successful scout cycle",
		}),
		LastJump: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_jump_timestamp",
			Help:      "Unix timestamp of last successful jump",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCycle records a finished scout cycle.
func RecordCycle(status string, duration time.Duration) {
	DefaultMetrics.CyclesTotal.WithLabelValues(status).Inc()
	DefaultMetrics.CycleDuration.Observe(duration.Seconds())
	if status == "ok" {
		DefaultMetrics.LastSuccessfulCycle.SetToCurrentTime()
	}
}

// RecordPairsScouted records pairs evaluated and the best score seen.
func RecordPairsScouted(n int, bestScore float64, lowProgress int) {
	DefaultMetrics.PairsScouted.Add(float64(n))
	DefaultMetrics.BestScore.Set(bestScore)
	DefaultMetrics.LowProgressPairs.Set(float64(lowProgress))
}

// RecordPairSkipped records a pair skipped during evaluation.
func RecordPairSkipped(reason string) {
	DefaultMetrics.PairsSkipped.WithLabelValues(reason).Inc()
}

// RecordThresholdsSet records initialized pair ratios.
func RecordThresholdsSet(n int) {
	DefaultMetrics.ThresholdsSet.Add(float64(n))
}

// RecordJump records a jump attempt.
func RecordJump(outcome string) {
	DefaultMetrics.JumpsTotal.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		DefaultMetrics.LastJump.SetToCurrentTime()
	}
}

// RecordReset records a ratio reset.
func RecordReset(trigger string) {
	DefaultMetrics.ResetsTotal.WithLabelValues(trigger).Inc()
}

// RecordBridgePurchase records a coin bought with idle bridge funds.
func RecordBridgePurchase() {
	DefaultMetrics.BridgePurchases.Inc()
}

// RecordValuesRecorded records coin value snapshots.
func RecordValuesRecorded(n int) {
	DefaultMetrics.ValuesRecorded.Add(float64(n))
}

// RecordExchangeCall records exchange call metrics.
func RecordExchangeCall(method string, seconds float64, err error) {
	DefaultMetrics.ExchangeCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.ExchangeCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordPriceUpdate increments the price stream update counter.
func RecordPriceUpdate() {
	DefaultMetrics.PriceUpdates.Inc()
}

// RecordStreamReconnect increments the price stream reconnect counter.
func RecordStreamReconnect() {
	DefaultMetrics.StreamReconnects.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordPrune records a retention prune run.
func RecordPrune(table string) {
	DefaultMetrics.PruneRuns.WithLabelValues(table).Inc()
}
