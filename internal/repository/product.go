package repository

import (
	"context"

	"merchant-settlement/internal/model"

	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, productID string) (*model.Product, error)
	CountByUser(ctx context.Context, userID string) (total int64, visible int64, err error)
}

type productRepoImpl struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepoImpl{
		db: db,
	}
}

func (r *productRepoImpl) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepoImpl) FindByID(ctx context.Context, productID string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", productID).
		First(&product).Error

	if err != nil {
		return nil, err
	}

	return &product, nil
}

func (r *productRepoImpl) CountByUser(ctx context.Context, userID string) (int64, int64, error) {
	var counts struct {
		Total   int64
		Visible int64
	}
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Select("COUNT(1) AS total, COALESCE(SUM(CASE WHEN visible THEN 1 ELSE 0 END), 0) AS visible").
		Where("user_id = ?", userID).
		Scan(&counts).Error

	if err != nil {
		return 0, 0, err
	}

	return counts.Total, counts.Visible, nil
}
