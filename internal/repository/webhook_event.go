package repository

import (
	"context"

	"merchant-settlement/internal/model"

	"gorm.io/gorm"
)

// WebhookEventRepository keeps an audit trail of authenticated deliveries.
// Deduplication relies on the natural keys of transactions and payouts, not
// on this table.
type WebhookEventRepository interface {
	Record(ctx context.Context, event *model.WebhookEvent) error
	CountByReference(ctx context.Context, reference string) (int64, error)
}

type webhookEventRepositoryIml struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepositoryIml{db: db}
}

func (r *webhookEventRepositoryIml) Record(ctx context.Context, event *model.WebhookEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *webhookEventRepositoryIml) CountByReference(ctx context.Context, reference string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("reference = ?", reference).
		Count(&count).Error

	return count, err
}
