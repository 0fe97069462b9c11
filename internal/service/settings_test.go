package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFee(t *testing.T) {
	tests := []struct {
		name    string
		amount  int64
		percent string
		fee     int64
		net     int64
	}{
		{"default rate", 10000, "5", 500, 9500},
		{"rounds half up", 1010, "5", 51, 959},
		{"fractional rate", 10000, "2.5", 250, 9750},
		{"zero rate", 10000, "0", 0, 10000},
		{"negative rate clamps", 10000, "-3", 0, 10000},
		{"rate above hundred clamps", 10000, "150", 10000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, net := SplitFee(tt.amount, decimal.RequireFromString(tt.percent))
			assert.Equal(t, tt.fee, fee)
			assert.Equal(t, tt.net, net)
		})
	}
}

func TestSettingsDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	fee, err := env.settings.GetFeePercentage(ctx, "nobody")
	require.NoError(t, err)
	assert.True(t, fee.Equal(decimal.NewFromInt(5)))

	cfg, err := env.settings.GetAutoTransferConfig(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, cfg.Ready())
}

func TestUpdateProfileRequiresDestinationForAutoTransfer(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.accounts.UpdateProfile(context.Background(), &UpdateProfileInput{
		UserID:       testSeller,
		AutoTransfer: true,
		MomoProvider: "mtn_bj",
	})

	assert.ErrorIs(t, err, ErrInvalidDestination)
}

func TestUpdateProfileStoresAutoTransfer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fee := decimal.RequireFromString("3.75")
	env.enableAutoTransfer(t, testSeller, &fee)

	cfg, err := env.settings.GetAutoTransferConfig(ctx, testSeller)
	require.NoError(t, err)
	assert.True(t, cfg.Ready())
	assert.Equal(t, "mtn_bj", cfg.Destination().Provider)

	got, err := env.settings.GetFeePercentage(ctx, testSeller)
	require.NoError(t, err)
	assert.True(t, got.Equal(fee), "fee %s", got)
}
