package repository

import (
	"context"
	"time"

	"merchant-settlement/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Windows are the UTC instants at which the rolling counters restart.
type Windows struct {
	Now            time.Time
	DayStart       time.Time
	MonthStart     time.Time
	PrevMonthStart time.Time
}

type StatsRepository interface {
	Get(ctx context.Context, userID string) (*model.UserStats, error)
	Ensure(ctx context.Context, tx *gorm.DB, userID string, now time.Time) error
	RollWindows(ctx context.Context, tx *gorm.DB, userID string, w Windows) error
	AddSale(ctx context.Context, tx *gorm.DB, userID string, gross, net int64, now time.Time) error
	RecomputeGrowth(ctx context.Context, tx *gorm.DB, userID string) error
	AddPayoutRequest(ctx context.Context, tx *gorm.DB, userID string, now time.Time) error
	SettlePayoutRequest(ctx context.Context, tx *gorm.DB, userID string, amount int64, now time.Time) error
	DropPayoutRequest(ctx context.Context, tx *gorm.DB, userID string, now time.Time) error
	SetProductCounts(ctx context.Context, tx *gorm.DB, userID string, total, visible int64, now time.Time) error
}

type statsRepoImpl struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepoImpl{
		db: db,
	}
}

// Assignments are ordered so that MySQL, which evaluates SET clauses left to
// right against already-updated columns, computes the same result as
// PostgreSQL and SQLite.
const rollWindowsSQL = `
UPDATE user_stats SET
	previous_month_sales = CASE
		WHEN last_daily_update < @prev_month_start THEN 0
		WHEN last_daily_update < @month_start THEN monthly_sales
		ELSE previous_month_sales END,
	previous_month_transactions = CASE
		WHEN last_daily_update < @prev_month_start THEN 0
		WHEN last_daily_update < @month_start THEN monthly_transactions
		ELSE previous_month_transactions END,
	monthly_sales = CASE WHEN last_daily_update < @month_start THEN 0 ELSE monthly_sales END,
	monthly_transactions = CASE WHEN last_daily_update < @month_start THEN 0 ELSE monthly_transactions END,
	daily_sales = CASE WHEN last_daily_update < @day_start THEN 0 ELSE daily_sales END,
	daily_transactions = CASE WHEN last_daily_update < @day_start THEN 0 ELSE daily_transactions END,
	last_daily_update = CASE WHEN last_daily_update < @now THEN @now ELSE last_daily_update END,
	updated_at = @now
WHERE user_id = @user_id`

const recomputeGrowthSQL = `
UPDATE user_stats SET
	sales_growth = (monthly_sales - previous_month_sales) * 100.0 /
		(CASE WHEN previous_month_sales > 1 THEN previous_month_sales ELSE 1 END)
WHERE user_id = ?`

func (r *statsRepoImpl) Get(ctx context.Context, userID string) (*model.UserStats, error) {
	var stats model.UserStats
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&stats).Error
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

func (r *statsRepoImpl) Ensure(ctx context.Context, tx *gorm.DB, userID string, now time.Time) error {
	return tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.UserStats{
			UserID:          userID,
			LastDailyUpdate: now,
			UpdatedAt:       now,
		}).Error
}

func (r *statsRepoImpl) RollWindows(ctx context.Context, tx *gorm.DB, userID string, w Windows) error {
	return tx.WithContext(ctx).Exec(rollWindowsSQL, map[string]interface{}{
		"prev_month_start": w.PrevMonthStart,
		"month_start":      w.MonthStart,
		"day_start":        w.DayStart,
		"now":              w.Now,
		"user_id":          userID,
	}).Error
}

func (r *statsRepoImpl) AddSale(ctx context.Context, tx *gorm.DB, userID string, gross, net int64, now time.Time) error {
	return tx.WithContext(ctx).Model(&model.UserStats{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"sales_total":          gorm.Expr("sales_total + ?", gross),
			"daily_sales":          gorm.Expr("daily_sales + ?", gross),
			"monthly_sales":        gorm.Expr("monthly_sales + ?", gross),
			"total_transactions":   gorm.Expr("total_transactions + 1"),
			"daily_transactions":   gorm.Expr("daily_transactions + 1"),
			"monthly_transactions": gorm.Expr("monthly_transactions + 1"),
			"balance":              gorm.Expr("balance + ?", net),
			"available_balance":    gorm.Expr("available_balance + ?", net),
			"updated_at":           now,
		}).Error
}

func (r *statsRepoImpl) RecomputeGrowth(ctx context.Context, tx *gorm.DB, userID string) error {
	return tx.WithContext(ctx).Exec(recomputeGrowthSQL, userID).Error
}

func (r *statsRepoImpl) AddPayoutRequest(ctx context.Context, tx *gorm.DB, userID string, now time.Time) error {
	return tx.WithContext(ctx).Model(&model.UserStats{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"pending_requests": gorm.Expr("pending_requests + 1"),
			"updated_at":       now,
		}).Error
}

func (r *statsRepoImpl) SettlePayoutRequest(ctx context.Context, tx *gorm.DB, userID string, amount int64, now time.Time) error {
	return tx.WithContext(ctx).Model(&model.UserStats{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"available_balance":  gorm.Expr("available_balance - ?", amount),
			"validated_requests": gorm.Expr("validated_requests + 1"),
			"pending_requests":   gorm.Expr("CASE WHEN pending_requests > 0 THEN pending_requests - 1 ELSE 0 END"),
			"updated_at":         now,
		}).Error
}

func (r *statsRepoImpl) DropPayoutRequest(ctx context.Context, tx *gorm.DB, userID string, now time.Time) error {
	return tx.WithContext(ctx).Model(&model.UserStats{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"pending_requests": gorm.Expr("CASE WHEN pending_requests > 0 THEN pending_requests - 1 ELSE 0 END"),
			"updated_at":       now,
		}).Error
}

func (r *statsRepoImpl) SetProductCounts(ctx context.Context, tx *gorm.DB, userID string, total, visible int64, now time.Time) error {
	return tx.WithContext(ctx).Model(&model.UserStats{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"total_products":   total,
			"visible_products": visible,
			"updated_at":       now,
		}).Error
}
