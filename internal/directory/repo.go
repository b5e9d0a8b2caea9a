package directory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightlens-media/payouts-backend/pkg/db/models"
)

// Repository is the read side of the settlement engine: orders, listings,
// staff and partners are owned by the surrounding platform and never written
// here.
type Repository interface {
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	FindStaffMember(ctx context.Context, id uuid.UUID) (*models.StaffMember, error)
	FindPartner(ctx context.Context, id uuid.UUID) (*models.Partner, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a directory repository bound to the provided
// database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) FindStaffMember(ctx context.Context, id uuid.UUID) (*models.StaffMember, error) {
	var member models.StaffMember
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) FindPartner(ctx context.Context, id uuid.UUID) (*models.Partner, error) {
	var partner models.Partner
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&partner).Error; err != nil {
		return nil, err
	}
	return &partner, nil
}
