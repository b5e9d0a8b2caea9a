package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records counters for settlement runs, transfers, and
// reversals.
type SettlementMetrics struct {
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	transfers   *prometheus.CounterVec
	reversals   *prometheus.CounterVec
	stuckLocks  prometheus.Gauge
}

// NewSettlementMetrics registers the settlement metrics on the provided
// registerer. A nil registerer yields a no-op collector, which tests rely on.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_runs_total",
		Help: "Settlement runs by outcome.",
	}, []string{"outcome"})
	runDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlement_run_duration_seconds",
		Help:    "Duration of settlement runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	transfers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_transfers_total",
		Help: "External transfer attempts by result.",
	}, []string{"result"})
	reversals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_reversals_total",
		Help: "Transfer reversal attempts by result.",
	}, []string{"result"})
	stuckLocks := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "settlement_stuck_locks",
		Help: "Locks held in the acquired state beyond the stuck threshold.",
	})
	reg.MustRegister(runs, runDuration, transfers, reversals, stuckLocks)
	return &SettlementMetrics{
		runs:        runs,
		runDuration: runDuration,
		transfers:   transfers,
		reversals:   reversals,
		stuckLocks:  stuckLocks,
	}
}

// ObserveRun records one settlement run with its outcome and duration.
func (m *SettlementMetrics) ObserveRun(outcome string, duration time.Duration) {
	if m == nil || m.runs == nil {
		return
	}
	label := normalizeLabel(outcome)
	m.runs.WithLabelValues(label).Inc()
	m.runDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// IncTransfer counts one transfer attempt.
func (m *SettlementMetrics) IncTransfer(result string) {
	if m == nil || m.transfers == nil {
		return
	}
	m.transfers.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncReversal counts one reversal attempt.
func (m *SettlementMetrics) IncReversal(result string) {
	if m == nil || m.reversals == nil {
		return
	}
	m.reversals.WithLabelValues(normalizeLabel(result)).Inc()
}

// SetStuckLocks publishes the sweeper's latest stuck-lock count.
func (m *SettlementMetrics) SetStuckLocks(count int) {
	if m == nil || m.stuckLocks == nil {
		return
	}
	m.stuckLocks.Set(float64(count))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
