package repository

import (
	"context"
	"time"

	"merchant-settlement/internal/model"

	"gorm.io/gorm"
)

type PayoutRepository interface {
	Create(ctx context.Context, tx *gorm.DB, payout *model.Payout) error
	FindByID(ctx context.Context, id string) (*model.Payout, error)
	FindByProcessorPayoutID(ctx context.Context, processorPayoutID string) (*model.Payout, error)
	SetProcessorPayoutID(ctx context.Context, tx *gorm.DB, id, processorPayoutID string, now time.Time) error
	// Transition moves a payout out of status from. It reports false when the
	// payout was no longer in that status, i.e. another delivery won.
	Transition(ctx context.Context, tx *gorm.DB, id, from, to, reason string, now time.Time) (bool, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Payout, error)
	ListStale(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Payout, error)
}

type payoutRepoImpl struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) PayoutRepository {
	return &payoutRepoImpl{
		db: db,
	}
}

func (r *payoutRepoImpl) Create(ctx context.Context, tx *gorm.DB, payout *model.Payout) error {
	return tx.WithContext(ctx).Create(payout).Error
}

func (r *payoutRepoImpl) FindByID(ctx context.Context, id string) (*model.Payout, error) {
	var payout model.Payout
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&payout).Error
	if err != nil {
		return nil, err
	}

	return &payout, nil
}

func (r *payoutRepoImpl) FindByProcessorPayoutID(ctx context.Context, processorPayoutID string) (*model.Payout, error) {
	var payout model.Payout
	err := r.db.WithContext(ctx).
		Where("processor_payout_id = ?", processorPayoutID).
		First(&payout).Error
	if err != nil {
		return nil, err
	}

	return &payout, nil
}

func (r *payoutRepoImpl) SetProcessorPayoutID(ctx context.Context, tx *gorm.DB, id, processorPayoutID string, now time.Time) error {
	return tx.WithContext(ctx).Model(&model.Payout{}).
		Where("id = ? AND processor_payout_id IS NULL", id).
		Updates(map[string]interface{}{
			"processor_payout_id": processorPayoutID,
			"updated_at":          now.UTC(),
		}).Error
}

func (r *payoutRepoImpl) Transition(ctx context.Context, tx *gorm.DB, id, from, to, reason string, now time.Time) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.Payout{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":         to,
			"failure_reason": reason,
			"updated_at":     now.UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func (r *payoutRepoImpl) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Payout, error) {
	var payouts []*model.Payout
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}

	return payouts, nil
}

func (r *payoutRepoImpl) ListStale(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Payout, error) {
	var payouts []*model.Payout
	err := r.db.WithContext(ctx).
		Where("status = ? AND processor_payout_id IS NULL AND created_at < ?", model.PayoutStatusPending, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&payouts).Error
	if err != nil {
		return nil, err
	}

	return payouts, nil
}
