package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightlens-media/payouts-backend/pkg/enums"
)

// PayoutRecord is one staff recipient's share of a settled order. Rows exist
// only for batches that fully succeeded; failed attempts leave their trace on
// the settlement lock instead.
type PayoutRecord struct {
	ID               uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	StaffMemberID    uuid.UUID          `gorm:"column:staff_member_id;type:uuid;not null;index"`
	Role             enums.StaffRole    `gorm:"column:role;type:staff_role;not null"`
	AmountCents      int64              `gorm:"column:amount_cents;not null"`
	Percent          decimal.Decimal    `gorm:"column:percent;type:numeric(5,2);not null"`
	StripeAccountID  *string            `gorm:"column:stripe_account_id"`
	StripeTransferID *string            `gorm:"column:stripe_transfer_id"`
	Status           enums.PayoutStatus `gorm:"column:status;type:payout_status;not null;default:'pending'"`
	Error            *string            `gorm:"column:error"`
	ReversedAt       *time.Time         `gorm:"column:reversed_at"`
	ReversalReason   *string            `gorm:"column:reversal_reason"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
