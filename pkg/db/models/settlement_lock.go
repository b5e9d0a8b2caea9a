package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brightlens-media/payouts-backend/pkg/enums"
)

// SettlementLock is the idempotency row guarding one order's settlement. The
// idempotency key is derived from (order id, listing id), so a retried
// approval maps onto the same row. Locks are created eagerly at the start of
// an attempt and never deleted.
type SettlementLock struct {
	ID             uuid.UUID                  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	IdempotencyKey string                     `gorm:"column:idempotency_key;not null;unique"`
	OrderID        uuid.UUID                  `gorm:"column:order_id;type:uuid;not null;index"`
	ListingID      uuid.UUID                  `gorm:"column:listing_id;type:uuid;not null"`
	Status         enums.SettlementLockStatus `gorm:"column:status;type:settlement_lock_status;not null;default:'acquired'"`
	Error          *string                    `gorm:"column:error"`
	CreatedAt      time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}
