package repository

import (
	"context"
	"time"

	"merchant-settlement/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WalletRepository mutates balances with SQL increments and guarded updates
// only; callers never write back a value they read.
type WalletRepository interface {
	Get(ctx context.Context, userID string) (*model.Wallet, error)
	Credit(ctx context.Context, tx *gorm.DB, userID string, amount int64, now time.Time) error
	Reserve(ctx context.Context, tx *gorm.DB, userID string, amount int64, now time.Time) (bool, error)
	Release(ctx context.Context, tx *gorm.DB, userID string, amount int64, now time.Time) error
	Debit(ctx context.Context, tx *gorm.DB, userID string, amount int64, now time.Time) (bool, error)
}

type walletRepoImpl struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepoImpl{
		db: db,
	}
}

func (r *walletRepoImpl) Get(ctx context.Context, userID string) (*model.Wallet, error) {
	var wallet model.Wallet
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&wallet).Error
	if err != nil {
		return nil, err
	}

	return &wallet, nil
}

// Credit adds a confirmed payment to both the spendable and the lifetime
// validated balance, creating the wallet on first use.
func (r *walletRepoImpl) Credit(ctx context.Context, tx *gorm.DB, userID string, amount int64, now time.Time) error {
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"available":  gorm.Expr("wallets.available + ?", amount),
			"validated":  gorm.Expr("wallets.validated + ?", amount),
			"updated_at": now,
		}),
	}).Create(&model.Wallet{
		UserID:    userID,
		Available: amount,
		Validated: amount,
		UpdatedAt: now,
	}).Error
}

// Reserve earmarks amount for a payout if the unreserved balance covers it.
func (r *walletRepoImpl) Reserve(ctx context.Context, tx *gorm.DB, userID string, amount int64, now time.Time) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.Wallet{}).
		Where("user_id = ? AND available - pending >= ?", userID, amount).
		Updates(map[string]interface{}{
			"pending":    gorm.Expr("pending + ?", amount),
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func (r *walletRepoImpl) Release(ctx context.Context, tx *gorm.DB, userID string, amount int64, now time.Time) error {
	return tx.WithContext(ctx).Model(&model.Wallet{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"pending":    gorm.Expr("CASE WHEN pending >= ? THEN pending - ? ELSE 0 END", amount, amount),
			"updated_at": now,
		}).Error
}

// Debit settles a reserved payout. It refuses, and reports false, when the
// available balance would go negative.
func (r *walletRepoImpl) Debit(ctx context.Context, tx *gorm.DB, userID string, amount int64, now time.Time) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.Wallet{}).
		Where("user_id = ? AND available >= ?", userID, amount).
		Updates(map[string]interface{}{
			"available":  gorm.Expr("available - ?", amount),
			"pending":    gorm.Expr("CASE WHEN pending >= ? THEN pending - ? ELSE 0 END", amount, amount),
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}
