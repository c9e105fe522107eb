package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики Prometheus для движка ликвидаций
var (
	accountsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "liquidator",
		Subsystem: "engine",
		Name:      "accounts_tracked",
		Help:      "Number of margin accounts in the current snapshot",
	})

	riskBucketAccounts = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "liquidator",
		Subsystem: "engine",
		Name:      "risk_bucket_accounts",
		Help:      "Accounts per risk bucket after the latest evaluation",
	}, []string{"bucket"})

	liquidationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "liquidator",
		Subsystem: "engine",
		Name:      "liquidation_attempts_total",
		Help:      "Liquidation attempts by outcome (succeeded, rejected, error)",
	}, []string{"outcome"})

	liquidationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "liquidator",
		Subsystem: "engine",
		Name:      "liquidation_duration_seconds",
		Help:      "Duration of liquidation attempts",
		Buckets:   prometheus.DefBuckets,
	})

	feedFetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "liquidator",
		Subsystem: "feeds",
		Name:      "fetch_failures_total",
		Help:      "Failed feed fetches by feed name (accounts, prices)",
	}, []string{"feed"})

	priceUpdatesDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "liquidator",
		Subsystem: "feeds",
		Name:      "price_updates_discarded_total",
		Help:      "Price snapshots discarded by the monotonicity guard",
	})

	processorState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "liquidator",
		Subsystem: "engine",
		Name:      "processor_state",
		Help:      "Current processor state (1 for the active state, 0 otherwise)",
	}, []string{"state"})

	rebalanceTrades = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "liquidator",
		Subsystem: "engine",
		Name:      "rebalance_runs_total",
		Help:      "Wallet rebalance runs by outcome",
	}, []string{"outcome"})

	resubscribeTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "liquidator",
		Subsystem: "feeds",
		Name:      "resubscribe_total",
		Help:      "Feed subscription teardown and recreate cycles",
	})
)

// setProcessorStateMetric выставляет 1 активному состоянию и 0 остальным
func setProcessorStateMetric(active string) {
	for state := range ValidTransitions {
		v := 0.0
		if state == active {
			v = 1.0
		}
		processorState.WithLabelValues(state).Set(v)
	}
}
