package service

import (
	"context"
	"errors"
	"fmt"

	"merchant-settlement/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AutoTransferConfig struct {
	Enabled   bool
	Provider  string
	Phone     string
	FirstName string
	LastName  string
	Email     string
}

// Ready reports whether a payout can be sent without asking the seller.
func (c *AutoTransferConfig) Ready() bool {
	return c != nil && c.Enabled && c.Provider != "" && c.Phone != ""
}

func (c *AutoTransferConfig) Destination() Destination {
	return Destination{
		Provider:  c.Provider,
		Phone:     c.Phone,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
	}
}

type SettingsService interface {
	GetFeePercentage(ctx context.Context, userID string) (decimal.Decimal, error)
	GetAutoTransferConfig(ctx context.Context, userID string) (*AutoTransferConfig, error)
}

type settingsServiceImpl struct {
	profileRepo repository.ProfileRepository
	defaultFee  decimal.Decimal
}

func NewSettingsService(profileRepo repository.ProfileRepository, defaultFeePercent float64) SettingsService {
	return &settingsServiceImpl{
		profileRepo: profileRepo,
		defaultFee:  decimal.NewFromFloat(defaultFeePercent),
	}
}

func (s *settingsServiceImpl) GetFeePercentage(ctx context.Context, userID string) (decimal.Decimal, error) {
	profile, err := s.profileRepo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.defaultFee, nil
		}
		return decimal.Zero, fmt.Errorf("get profile: %w", err)
	}

	if !profile.FeePercentage.Valid {
		return s.defaultFee, nil
	}
	return profile.FeePercentage.Decimal, nil
}

func (s *settingsServiceImpl) GetAutoTransferConfig(ctx context.Context, userID string) (*AutoTransferConfig, error) {
	profile, err := s.profileRepo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &AutoTransferConfig{}, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return &AutoTransferConfig{
		Enabled:   profile.AutoTransfer,
		Provider:  profile.MomoProvider,
		Phone:     profile.MomoNumber,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Email:     profile.Email,
	}, nil
}

var hundred = decimal.NewFromInt(100)

// SplitFee returns the platform fee and the seller's net share of amount.
// The fee is rounded half away from zero to the minor unit and the percentage
// is clamped to [0, 100].
func SplitFee(amount int64, feePercent decimal.Decimal) (fee int64, net int64) {
	if feePercent.IsNegative() {
		feePercent = decimal.Zero
	}
	if feePercent.GreaterThan(hundred) {
		feePercent = hundred
	}

	fee = decimal.NewFromInt(amount).Mul(feePercent).Div(hundred).Round(0).IntPart()
	return fee, amount - fee
}
