package repository

import (
	"context"
	"time"

	"merchant-settlement/internal/model"

	"gorm.io/gorm"
)

type PaymentLinkRepository interface {
	Create(ctx context.Context, link *model.PaymentLink) error
	FindByID(ctx context.Context, id string) (*model.PaymentLink, error)
	FindByProcessorToken(ctx context.Context, token string) (*model.PaymentLink, error)
	MarkCompleted(ctx context.Context, tx *gorm.DB, id string) error
}

type paymentLinkRepoImpl struct {
	db *gorm.DB
}

func NewPaymentLinkRepository(db *gorm.DB) PaymentLinkRepository {
	return &paymentLinkRepoImpl{
		db: db,
	}
}

func (r *paymentLinkRepoImpl) Create(ctx context.Context, link *model.PaymentLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *paymentLinkRepoImpl) FindByID(ctx context.Context, id string) (*model.PaymentLink, error) {
	var link model.PaymentLink
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&link).Error
	if err != nil {
		return nil, err
	}

	return &link, nil
}

func (r *paymentLinkRepoImpl) FindByProcessorToken(ctx context.Context, token string) (*model.PaymentLink, error) {
	var link model.PaymentLink
	err := r.db.WithContext(ctx).
		Where("processor_token = ?", token).
		First(&link).Error
	if err != nil {
		return nil, err
	}

	return &link, nil
}

func (r *paymentLinkRepoImpl) MarkCompleted(ctx context.Context, tx *gorm.DB, id string) error {
	return tx.WithContext(ctx).Model(&model.PaymentLink{}).
		Where("id = ? AND status = ?", id, model.PaymentLinkStatusActive).
		Updates(map[string]interface{}{
			"status":     model.PaymentLinkStatusCompleted,
			"updated_at": time.Now().UTC(),
		}).Error
}
