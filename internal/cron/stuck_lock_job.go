package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brightlens-media/payouts-backend/pkg/db/models"
	"github.com/brightlens-media/payouts-backend/pkg/logger"
	"github.com/brightlens-media/payouts-backend/pkg/metrics"
)

const defaultStuckThreshold = 24 * time.Hour

// settlementLocks is the slice of the settlement repository the sweeper
// needs.
type settlementLocks interface {
	FindStuckLocks(ctx context.Context, acquiredBefore time.Time) ([]models.SettlementLock, error)
}

// StuckLockJob flags settlement locks stranded in the acquired state by a
// crashed run. Locks are never expired automatically: re-running a
// half-finished settlement could double-pay, so resolution stays manual via
// the repository's status override.
type StuckLockJob struct {
	locks     settlementLocks
	logg      *logger.Logger
	metrics   *metrics.SettlementMetrics
	threshold time.Duration
	now       func() time.Time
}

// NewStuckLockJob builds the sweeper job.
func NewStuckLockJob(locks settlementLocks, logg *logger.Logger, m *metrics.SettlementMetrics, threshold time.Duration) (*StuckLockJob, error) {
	if locks == nil {
		return nil, errors.New("settlement lock repository required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if threshold <= 0 {
		threshold = defaultStuckThreshold
	}
	return &StuckLockJob{
		locks:     locks,
		logg:      logg,
		metrics:   m,
		threshold: threshold,
		now:       time.Now,
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *StuckLockJob) Name() string { return "stuck-lock-sweeper" }

// Run flags every lock held in acquired state longer than the threshold.
func (j *StuckLockJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.threshold)
	stuck, err := j.locks.FindStuckLocks(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("finding stuck settlement locks: %w", err)
	}

	j.metrics.SetStuckLocks(len(stuck))

	for _, lock := range stuck {
		fields := j.logg.WithFields(ctx, map[string]any{
			"idempotency_key": lock.IdempotencyKey,
			"order_id":        lock.OrderID.String(),
			"listing_id":      lock.ListingID.String(),
			"held_for":        j.now().Sub(lock.CreatedAt).String(),
		})
		j.logg.Warn(fields, "settlement lock stuck in acquired state; manual status override required")
	}

	if len(stuck) == 0 {
		j.logg.Info(ctx, "no stuck settlement locks")
	}
	return nil
}
