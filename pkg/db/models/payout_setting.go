package models

import "time"

// PayoutSetting is one admin-editable key/value row of the payout defaults
// table. Values are decimal percentages stored as text.
type PayoutSetting struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name; the default pluralization is wrong here.
func (PayoutSetting) TableName() string {
	return "payout_settings"
}
