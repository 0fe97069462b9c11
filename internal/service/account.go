package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"merchant-settlement/internal/clock"
	"merchant-settlement/internal/model"
	"merchant-settlement/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const DefaultListLimit = 50

type UpdateProfileInput struct {
	UserID        string
	FirstName     string
	LastName      string
	Email         string
	FeePercentage *decimal.Decimal
	AutoTransfer  bool
	MomoProvider  string
	MomoNumber    string
}

type CreateProductInput struct {
	UserID   string
	Name     string
	Price    int64
	Currency string
	Visible  bool
}

// AccountService serves the seller's own records: balances, history,
// settings and catalog.
type AccountService interface {
	GetWallet(ctx context.Context, userID string) (*model.Wallet, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]*model.Transaction, error)
	UpdateProfile(ctx context.Context, in *UpdateProfileInput) (*model.Profile, error)
	CreateProduct(ctx context.Context, in *CreateProductInput) (*model.Product, error)
}

type accountServiceImpl struct {
	walletRepo      repository.WalletRepository
	transactionRepo repository.TransactionRepository
	profileRepo     repository.ProfileRepository
	productRepo     repository.ProductRepository
	defaultCurrency string
	clock           clock.Clock
}

func NewAccountService(
	walletRepo repository.WalletRepository,
	transactionRepo repository.TransactionRepository,
	profileRepo repository.ProfileRepository,
	productRepo repository.ProductRepository,
	defaultCurrency string,
	clk clock.Clock,
) AccountService {
	return &accountServiceImpl{
		walletRepo:      walletRepo,
		transactionRepo: transactionRepo,
		profileRepo:     profileRepo,
		productRepo:     productRepo,
		defaultCurrency: defaultCurrency,
		clock:           clk,
	}
}

// GetWallet returns a zero wallet for a seller who has not been paid yet.
func (s *accountServiceImpl) GetWallet(ctx context.Context, userID string) (*model.Wallet, error) {
	wallet, err := s.walletRepo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.Wallet{UserID: userID}, nil
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return wallet, nil
}

func (s *accountServiceImpl) ListTransactions(ctx context.Context, userID string, limit int) ([]*model.Transaction, error) {
	return s.transactionRepo.ListByUser(ctx, userID, limit)
}

func (s *accountServiceImpl) UpdateProfile(ctx context.Context, in *UpdateProfileInput) (*model.Profile, error) {
	profile := &model.Profile{
		UserID:       in.UserID,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        strings.TrimSpace(in.Email),
		AutoTransfer: in.AutoTransfer,
		MomoProvider: strings.TrimSpace(in.MomoProvider),
		MomoNumber:   strings.TrimSpace(in.MomoNumber),
	}
	if in.FeePercentage != nil {
		fee := *in.FeePercentage
		if fee.IsNegative() || fee.GreaterThan(hundred) {
			return nil, fmt.Errorf("%w: fee percentage must be between 0 and 100", ErrInvalidAmount)
		}
		profile.FeePercentage = decimal.NewNullDecimal(fee)
	}
	if profile.AutoTransfer && (profile.MomoProvider == "" || profile.MomoNumber == "") {
		return nil, fmt.Errorf("%w: auto transfer needs a provider and number", ErrInvalidDestination)
	}

	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return s.profileRepo.Get(ctx, in.UserID)
}

func (s *accountServiceImpl) CreateProduct(ctx context.Context, in *CreateProductInput) (*model.Product, error) {
	if in.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidAmount)
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}

	now := s.clock.Now()
	product := &model.Product{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		Name:      strings.TrimSpace(in.Name),
		Price:     in.Price,
		Currency:  currency,
		Visible:   in.Visible,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return product, nil
}
