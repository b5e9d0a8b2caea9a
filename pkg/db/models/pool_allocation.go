package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightlens-media/payouts-backend/pkg/enums"
)

// PoolAllocation accrues an internal pool's share of a settled order. Pools
// are allocated at commit for every settlement regardless of which external
// recipients were eligible.
type PoolAllocation struct {
	ID          uuid.UUID                  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID                  `gorm:"column:order_id;type:uuid;not null;index"`
	Pool        enums.PoolType             `gorm:"column:pool;type:pool_type;not null"`
	AmountCents int64                      `gorm:"column:amount_cents;not null"`
	Percent     decimal.Decimal            `gorm:"column:percent;type:numeric(5,2);not null"`
	Status      enums.PoolAllocationStatus `gorm:"column:status;type:pool_allocation_status;not null;default:'available'"`
	CreatedAt   time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}
