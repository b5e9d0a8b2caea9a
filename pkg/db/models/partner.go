package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Partner is a revenue-share counterpart linked from a staff member. A nil
// RevenueSharePercent means the settings default applies; an explicit zero
// means the partner takes no share.
type Partner struct {
	ID                  uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name                string           `gorm:"column:name;not null"`
	RevenueSharePercent *decimal.Decimal `gorm:"column:revenue_share_percent;type:numeric(5,2)"`
	StripeAccountID     *string          `gorm:"column:stripe_account_id"`
	TransfersEnabled    bool             `gorm:"column:transfers_enabled;not null;default:false"`
	CreatedAt           time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
