package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront/internal/repo"
	"github.com/angelmondragon/storefront/pkg/db/models"
)

// ProfileRepository persists the shipping profile remembered for a user.
type ProfileRepository struct {
	repo.Base
}

// NewProfileRepository constructs a profile repo bound to the provided GORM DB.
func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{Base: repo.NewBase(db)}
}

// FindProfile loads the user's stored profile. A user without one yields (nil, nil).
func (r *ProfileRepository) FindProfile(ctx context.Context, userID uuid.UUID) (*ShippingProfile, error) {
	var row models.UserProfile
	err := r.DB(ctx).First(&row, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	profile := ProfileFromModel(&row)
	return &profile, nil
}

// UpsertShippingProfile overwrites every shipping field of the user's profile.
func (r *ProfileRepository) UpsertShippingProfile(ctx context.Context, userID uuid.UUID, profile ShippingProfile) error {
	row := profile.ToModel(userID)
	row.UpdatedAt = time.Now().UTC()
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "phone", "address", "city", "postal_code", "updated_at"}),
	}).Create(row).Error
}
