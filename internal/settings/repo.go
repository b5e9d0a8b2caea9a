package settings

import (
	"context"

	"gorm.io/gorm"

	"github.com/brightlens-media/payouts-backend/pkg/db/models"
)

// Repository manages persistence for the payout settings table.
type Repository interface {
	ListAll(ctx context.Context) ([]models.PayoutSetting, error)
	Upsert(ctx context.Context, setting *models.PayoutSetting) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a settings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListAll(ctx context.Context) ([]models.PayoutSetting, error) {
	var settings []models.PayoutSetting
	if err := r.db.WithContext(ctx).
		Order("key ASC").
		Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *repository) Upsert(ctx context.Context, setting *models.PayoutSetting) error {
	return r.db.WithContext(ctx).Save(setting).Error
}
