package service

import (
	"context"
	"testing"
	"time"

	"merchant-settlement/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyCountersResetAtMidnight(t *testing.T) {
	env := newTestEnvAt(t, time.Date(2024, time.March, 10, 23, 59, 0, 0, time.UTC), time.UTC)

	env.pay(t, testSeller, 1000)
	env.clock.Advance(2 * time.Minute)
	env.pay(t, testSeller, 500)

	stats := env.userStats(t, testSeller)
	assert.Equal(t, int64(500), stats.DailySales)
	assert.Equal(t, int64(1), stats.DailyTransactions)
	assert.Equal(t, int64(1500), stats.MonthlySales)
	assert.Equal(t, int64(2), stats.MonthlyTransactions)
	assert.Equal(t, int64(1500), stats.SalesTotal)
}

func TestMonthRolloverComputesGrowth(t *testing.T) {
	env := newTestEnvAt(t, time.Date(2024, time.February, 15, 9, 0, 0, 0, time.UTC), time.UTC)

	env.pay(t, testSeller, 1000)
	env.clock.Set(time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC))
	env.pay(t, testSeller, 1200)

	stats := env.userStats(t, testSeller)
	assert.Equal(t, int64(1000), stats.PreviousMonthSales)
	assert.Equal(t, int64(1), stats.PreviousMonthTransactions)
	assert.Equal(t, int64(1200), stats.MonthlySales)
	assert.Equal(t, int64(1), stats.MonthlyTransactions)
	assert.InDelta(t, 20.0, stats.SalesGrowth, 1e-9)
}

func TestGrowthWithoutPreviousMonth(t *testing.T) {
	env := newTestEnv(t)

	env.pay(t, testSeller, 1000)

	// The divisor is floored at one so a first month reports raw growth.
	assert.InDelta(t, 100000.0, env.userStats(t, testSeller).SalesGrowth, 1e-9)
}

func TestPreviousMonthClearedAfterLongGap(t *testing.T) {
	env := newTestEnvAt(t, time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC), time.UTC)

	env.pay(t, testSeller, 1000)
	env.clock.Set(time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC))
	env.pay(t, testSeller, 700)

	stats := env.userStats(t, testSeller)
	assert.Equal(t, int64(0), stats.PreviousMonthSales)
	assert.Equal(t, int64(0), stats.PreviousMonthTransactions)
	assert.Equal(t, int64(700), stats.MonthlySales)
	assert.Equal(t, int64(1700), stats.SalesTotal)
}

func TestWindowsFollowConfiguredTimezone(t *testing.T) {
	wat := time.FixedZone("WAT", 3600)
	env := newTestEnvAt(t, time.Date(2024, time.March, 10, 23, 30, 0, 0, time.UTC), wat)

	w := env.stats.Windows(env.clock.Now())

	assert.Equal(t, time.Date(2024, time.March, 10, 23, 0, 0, 0, time.UTC), w.DayStart)
	assert.Equal(t, time.Date(2024, time.February, 29, 23, 0, 0, 0, time.UTC), w.MonthStart)
	assert.Equal(t, time.Date(2024, time.January, 31, 23, 0, 0, 0, time.UTC), w.PrevMonthStart)
}

func TestLocalMidnightResetsDailyCounters(t *testing.T) {
	wat := time.FixedZone("WAT", 3600)
	// 22:50 UTC is 23:50 local; 23:10 UTC is already the next local day.
	env := newTestEnvAt(t, time.Date(2024, time.March, 10, 22, 50, 0, 0, time.UTC), wat)

	env.pay(t, testSeller, 1000)
	env.clock.Advance(20 * time.Minute)
	env.pay(t, testSeller, 300)

	stats := env.userStats(t, testSeller)
	assert.Equal(t, int64(300), stats.DailySales)
	assert.Equal(t, int64(1300), stats.MonthlySales)
}

func TestRefreshRollsIdleCountersAndCountsProducts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, visible := range []bool{true, true, false} {
		_, err := env.accounts.CreateProduct(ctx, &CreateProductInput{
			UserID:  testSeller,
			Name:    "item",
			Price:   1500,
			Visible: visible,
		})
		require.NoError(t, err)
	}
	env.pay(t, testSeller, 1000)
	env.clock.Advance(24 * time.Hour)

	stats, err := env.stats.Refresh(ctx, testSeller)

	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.DailySales)
	assert.Equal(t, int64(0), stats.DailyTransactions)
	assert.Equal(t, int64(1000), stats.MonthlySales)
	assert.Equal(t, int64(3), stats.TotalProducts)
	assert.Equal(t, int64(2), stats.VisibleProducts)
}

func TestRefreshCreatesStatsForNewSeller(t *testing.T) {
	env := newTestEnv(t)

	stats, err := env.stats.Refresh(context.Background(), "newcomer")

	require.NoError(t, err)
	assert.Equal(t, "newcomer", stats.UserID)
	assert.Equal(t, int64(0), stats.SalesTotal)
	assert.Equal(t, int64(1), env.count(t, &model.UserStats{}))
}
