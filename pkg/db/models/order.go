package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brightlens-media/payouts-backend/pkg/enums"
)

// Order is the billing-side order row. The settlement engine treats it as
// read-only: the total is immutable once payment has succeeded.
type Order struct {
	ID            uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TotalCents    int64               `gorm:"column:total_cents;not null"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	Address       string              `gorm:"column:address;not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
