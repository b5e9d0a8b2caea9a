package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightlens-media/payouts-backend/pkg/enums"
)

// StaffMember is a contractor eligible for order payouts. PayoutPercent is an
// optional override; when nil the role default from payout settings applies.
// A nil StripeAccountID means the member has not finished transfer onboarding.
type StaffMember struct {
	ID               uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Role             enums.StaffRole  `gorm:"column:role;type:staff_role;not null"`
	PayoutMode       enums.PayoutMode `gorm:"column:payout_mode;type:payout_mode;not null;default:'external'"`
	PayoutPercent    *decimal.Decimal `gorm:"column:payout_percent;type:numeric(5,2)"`
	StripeAccountID  *string          `gorm:"column:stripe_account_id"`
	TransfersEnabled bool             `gorm:"column:transfers_enabled;not null;default:false"`
	PartnerID        *uuid.UUID       `gorm:"column:partner_id;type:uuid"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
