package repository

import (
	"context"
	"time"

	"merchant-settlement/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository interface {
	Upsert(ctx context.Context, profile *model.Profile) error
	Get(ctx context.Context, userID string) (*model.Profile, error)
}

type profileRepoImpl struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepoImpl{
		db: db,
	}
}

func (r *profileRepoImpl) Upsert(ctx context.Context, profile *model.Profile) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"first_name":     profile.FirstName,
			"last_name":      profile.LastName,
			"email":          profile.Email,
			"fee_percentage": profile.FeePercentage,
			"auto_transfer":  profile.AutoTransfer,
			"momo_provider":  profile.MomoProvider,
			"momo_number":    profile.MomoNumber,
			"updated_at":     time.Now().UTC(),
		}),
	}).Create(profile).Error
}

func (r *profileRepoImpl) Get(ctx context.Context, userID string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&profile).Error
	if err != nil {
		return nil, err
	}

	return &profile, nil
}
