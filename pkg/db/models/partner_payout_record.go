package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightlens-media/payouts-backend/pkg/enums"
)

// PartnerPayoutRecord is a revenue-share partner's slice of a settled order.
type PartnerPayoutRecord struct {
	ID               uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	PartnerID        uuid.UUID          `gorm:"column:partner_id;type:uuid;not null;index"`
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
