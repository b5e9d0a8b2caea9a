package models

import (
	"time"

	"github.com/google/uuid"
)

// Listing ties an order to the crew that shot it.
type Listing struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AgentID        uuid.UUID  `gorm:"column:agent_id;type:uuid;not null;index"`
	PhotographerID *uuid.UUID `gorm:"column:photographer_id;type:uuid;index"`
	VideographerID *uuid.UUID `gorm:"column:videographer_id;type:uuid"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
