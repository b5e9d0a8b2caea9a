package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSettlementMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSettlementMetrics(reg)

	m.ObserveRun("completed", 250*time.Millisecond)
	m.ObserveRun("failed", time.Second)
	m.IncTransfer("success")
	m.IncTransfer("success")
	m.IncTransfer("failure")
	m.IncReversal("failure")
	m.SetStuckLocks(3)

	if got := testutil.ToFloat64(m.runs.WithLabelValues("completed")); got != 1 {
		t.Fatalf("expected 1 completed run, got %v", got)
	}
	if got := testutil.ToFloat64(m.transfers.WithLabelValues("success")); got != 2 {
		t.Fatalf("expected 2 transfer successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.reversals.WithLabelValues("failure")); got != 1 {
		t.Fatalf("expected 1 reversal failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.stuckLocks); got != 3 {
		t.Fatalf("expected stuck locks gauge 3, got %v", got)
	}
}

func TestSettlementMetricsNilSafe(t *testing.T) {
	var m *SettlementMetrics
	m.ObserveRun("completed", time.Second)
	m.IncTransfer("success")
	m.IncReversal("success")
	m.SetStuckLocks(1)

	noop := NewSettlementMetrics(nil)
	noop.ObserveRun("", 0)
	noop.IncTransfer("")
}

func TestJobMetricsNilSafe(t *testing.T) {
	var j *JobMetrics
	j.ObserveDuration("sweeper", time.Second)
	j.IncSuccess("sweeper")
	j.IncFailure("sweeper")

	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)
	m.IncSuccess("stuck-lock-sweeper")
	if got := testutil.ToFloat64(m.success.WithLabelValues("stuck-lock-sweeper")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
}
