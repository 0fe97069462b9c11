package repository

import (
	"context"

	"merchant-settlement/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransactionRepository interface {
	// CreateIfAbsent inserts tx unless its processor reference is already
	// recorded, and reports whether the row was inserted.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, transaction *model.Transaction) (bool, error)
	FindByProcessorReference(ctx context.Context, reference string) (*model.Transaction, error)
	// ClaimProcessing marks the post-payment follow-up as taken inside tx and
	// reports false when another delivery already holds it.
	ClaimProcessing(ctx context.Context, tx *gorm.DB, id string) (bool, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Transaction, error)
}

type transactionRepositoryImpl struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepositoryImpl{
		db: db,
	}
}

func (r *transactionRepositoryImpl) CreateIfAbsent(ctx context.Context, tx *gorm.DB, transaction *model.Transaction) (bool, error) {
	result := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "processor_reference"}},
		DoNothing: true,
	}).Create(transaction)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func (r *transactionRepositoryImpl) FindByProcessorReference(ctx context.Context, reference string) (*model.Transaction, error) {
	var transaction model.Transaction
	err := r.db.WithContext(ctx).
		Where("processor_reference = ?", reference).
		First(&transaction).Error
	if err != nil {
		return nil, err
	}

	return &transaction, nil
}

func (r *transactionRepositoryImpl) ClaimProcessing(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.Transaction{}).
		Where("id = ? AND processed = ?", id, false).
		Update("processed", true)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func (r *transactionRepositoryImpl) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Transaction, error) {
	var transactions []*model.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}

	return transactions, nil
}
