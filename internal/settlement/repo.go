package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/brightlens-media/payouts-backend/pkg/db"
	"github.com/brightlens-media/payouts-backend/pkg/db/models"
	"github.com/brightlens-media/payouts-backend/pkg/enums"
)

const lockUniqueConstraint = "settlement_locks_idempotency_key_key"

// LockAcquisition is the outcome of one atomic lock-acquire attempt. When
// Acquired is false the existing row's status and error text tell the caller
// which previously recorded outcome to return.
type LockAcquisition struct {
	Acquired       bool
	ExistingStatus enums.SettlementLockStatus
	ExistingError  *string
}

// CommitInput carries everything one settlement commit writes atomically:
// the payout rows, the pool rows, and the lock-completion flip.
type CommitInput struct {
	IdempotencyKey  string
	LockError       *string
	StaffPayouts    []models.PayoutRecord
	PartnerPayouts  []models.PartnerPayoutRecord
	PoolAllocations []models.PoolAllocation
}

// Repository manages persistence for settlement locks and payout rows. The
// acquire and commit operations each run their own database transaction;
// everything else is a row-level read or update.
type Repository interface {
	AcquireLock(ctx context.Context, lock *models.SettlementLock) (*LockAcquisition, error)
	CommitSettlement(ctx context.Context, input CommitInput) error
	MarkLockFailed(ctx context.Context, idempotencyKey string, errText string) error
	OverrideLockStatus(ctx context.Context, idempotencyKey string, status enums.SettlementLockStatus, note *string) error
	FindStuckLocks(ctx context.Context, acquiredBefore time.Time) ([]models.SettlementLock, error)
	FindCompletedStaffPayouts(ctx context.Context, orderID uuid.UUID) ([]models.PayoutRecord, error)
	FindCompletedPartnerPayouts(ctx context.Context, orderID uuid.UUID) ([]models.PartnerPayoutRecord, error)
	MarkStaffPayoutReversed(ctx context.Context, id uuid.UUID, reason string, at time.Time) error
	MarkPartnerPayoutReversed(ctx context.Context, id uuid.UUID, reason string, at time.Time) error
	AppendStaffPayoutError(ctx context.Context, id uuid.UUID, errText string) error
	AppendPartnerPayoutError(ctx context.Context, id uuid.UUID, errText string) error
	MarkPoolAllocationsReversed(ctx context.Context, orderID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a settlement repository bound to the provided
// database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// AcquireLock inserts the lock row with ON CONFLICT DO NOTHING and reads the
// surviving row in the same transaction, so two concurrent attempts for the
// same key cannot both believe they acquired it.
func (r *repository) AcquireLock(ctx context.Context, lock *models.SettlementLock) (*LockAcquisition, error) {
	if lock == nil {
		return nil, fmt.Errorf("settlement lock is required")
	}
	if lock.Status == "" {
		lock.Status = enums.SettlementLockStatusAcquired
	}

	var result LockAcquisition
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		insert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).Create(lock)
		if insert.Error != nil && !db.IsUniqueViolation(insert.Error, lockUniqueConstraint) {
			return insert.Error
		}
		if insert.Error == nil && insert.RowsAffected > 0 {
			result = LockAcquisition{Acquired: true, ExistingStatus: lock.Status}
			return nil
		}

		var existing models.SettlementLock
		if err := tx.Where("idempotency_key = ?", lock.IdempotencyKey).First(&existing).Error; err != nil {
			return err
		}
		result = LockAcquisition{
			Acquired:       false,
			ExistingStatus: existing.Status,
			ExistingError:  existing.Error,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CommitSettlement writes every payout and pool row and flips the lock to
// completed in one transaction. The lock update is guarded on the acquired
// status so a row already resolved by another path aborts the whole commit.
func (r *repository) CommitSettlement(ctx context.Context, input CommitInput) error {
	if input.IdempotencyKey == "" {
		return fmt.Errorf("idempotency key is required")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(input.StaffPayouts) > 0 {
			if err := tx.Create(&input.StaffPayouts).Error; err != nil {
				return err
			}
		}
		if len(input.PartnerPayouts) > 0 {
			if err := tx.Create(&input.PartnerPayouts).Error; err != nil {
				return err
			}
		}
		if len(input.PoolAllocations) > 0 {
			if err := tx.Create(&input.PoolAllocations).Error; err != nil {
				return err
			}
		}

		update := tx.Model(&models.SettlementLock{}).
			Where("idempotency_key = ? AND status = ?", input.IdempotencyKey, enums.SettlementLockStatusAcquired).
			Updates(map[string]any{
				"status": enums.SettlementLockStatusCompleted,
				"error":  input.LockError,
			})
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return fmt.Errorf("settlement lock %s is not in acquired state", input.IdempotencyKey)
		}
		return nil
	})
}

func (r *repository) MarkLockFailed(ctx context.Context, idempotencyKey string, errText string) error {
	if idempotencyKey == "" {
		return fmt.Errorf("idempotency key is required")
	}
	update := r.db.WithContext(ctx).Model(&models.SettlementLock{}).
		Where("idempotency_key = ? AND status = ?", idempotencyKey, enums.SettlementLockStatusAcquired).
		Updates(map[string]any{
			"status": enums.SettlementLockStatusFailed,
			"error":  errText,
		})
	if update.Error != nil {
		return update.Error
	}
	if update.RowsAffected == 0 {
		return fmt.Errorf("settlement lock %s is not in acquired state", idempotencyKey)
	}
	return nil
}

// OverrideLockStatus is the administrative escape hatch for locks stranded in
// the acquired state by a crashed run. It does not guard on the current
// status.
func (r *repository) OverrideLockStatus(ctx context.Context, idempotencyKey string, status enums.SettlementLockStatus, note *string) error {
	if idempotencyKey == "" {
		return fmt.Errorf("idempotency key is required")
	}
	if !status.IsValid() {
		return fmt.Errorf("invalid settlement lock status %q", status)
	}
	update := r.db.WithContext(ctx).Model(&models.SettlementLock{}).
		Where("idempotency_key = ?", idempotencyKey).
		Updates(map[string]any{
			"status": status,
			"error":  note,
		})
	if update.Error != nil {
		return update.Error
	}
	if update.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) FindStuckLocks(ctx context.Context, acquiredBefore time.Time) ([]models.SettlementLock, error) {
	var locks []models.SettlementLock
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.SettlementLockStatusAcquired, acquiredBefore).
		Order("created_at ASC").
		Find(&locks).Error
	if err != nil {
		return nil, err
	}
	return locks, nil
}

func (r *repository) FindCompletedStaffPayouts(ctx context.Context, orderID uuid.UUID) ([]models.PayoutRecord, error) {
	var records []models.PayoutRecord
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, enums.PayoutStatusCompleted).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) FindCompletedPartnerPayouts(ctx context.Context, orderID uuid.UUID) ([]models.PartnerPayoutRecord, error) {
	var records []models.PartnerPayoutRecord
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, enums.PayoutStatusCompleted).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) MarkStaffPayoutReversed(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	return r.markReversed(ctx, &models.PayoutRecord{}, id, reason, at)
}

func (r *repository) MarkPartnerPayoutReversed(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	return r.markReversed(ctx, &models.PartnerPayoutRecord{}, id, reason, at)
}

func (r *repository) markReversed(ctx context.Context, model any, id uuid.UUID, reason string, at time.Time) error {
	update := r.db.WithContext(ctx).Model(model).
		Where("id = ? AND status = ?", id, enums.PayoutStatusCompleted).
		Updates(map[string]any{
			"status":          enums.PayoutStatusReversed,
			"reversed_at":     at,
			"reversal_reason": reason,
		})
	if update.Error != nil {
		return update.Error
	}
	if update.RowsAffected == 0 {
		return fmt.Errorf("payout record %s is not in completed state", id)
	}
	return nil
}

func (r *repository) AppendStaffPayoutError(ctx context.Context, id uuid.UUID, errText string) error {
	return r.appendError(ctx, &models.PayoutRecord{}, id, errText)
}

func (r *repository) AppendPartnerPayoutError(ctx context.Context, id uuid.UUID, errText string) error {
	return r.appendError(ctx, &models.PartnerPayoutRecord{}, id, errText)
}

func (r *repository) appendError(ctx context.Context, model any, id uuid.UUID, errText string) error {
	return r.db.WithContext(ctx).Model(model).
		Where("id = ?", id).
		Update("error", gorm.Expr("COALESCE(error || '; ', '') || ?", errText)).
		Error
}

// MarkPoolAllocationsReversed flips an order's still-available pool rows to
// reversed. Pools have no provider side, so this is a pure ledger update.
func (r *repository) MarkPoolAllocationsReversed(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.PoolAllocation{}).
		Where("order_id = ? AND status = ?", orderID, enums.PoolAllocationStatusAvailable).
		Update("status", enums.PoolAllocationStatusReversed).
		Error
}
