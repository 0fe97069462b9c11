package service

import (
	"context"
	"fmt"
	"strings"

	"merchant-settlement/internal/client"
	"merchant-settlement/internal/clock"
	"merchant-settlement/internal/config"
	"merchant-settlement/internal/model"
	"merchant-settlement/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreatePaymentLinkInput struct {
	UserID      string
	Amount      int64
	Currency    string
	Description string
	Customer    client.Customer
}

type PaymentLinkService interface {
	Create(ctx context.Context, in *CreatePaymentLinkInput) (*model.PaymentLink, error)
	Get(ctx context.Context, id string) (*model.PaymentLink, error)
}

type paymentLinkServiceImpl struct {
	linkRepo  repository.PaymentLinkRepository
	processor client.PaymentProcessor
	cfg       *config.Ledger
	baseURL   string
	clock     clock.Clock
	log       *zap.Logger
}

func NewPaymentLinkService(
	linkRepo repository.PaymentLinkRepository,
	processor client.PaymentProcessor,
	cfg *config.Ledger,
	baseURL string,
	clk clock.Clock,
	log *zap.Logger,
) PaymentLinkService {
	return &paymentLinkServiceImpl{
		linkRepo:  linkRepo,
		processor: processor,
		cfg:       cfg,
		baseURL:   strings.TrimRight(baseURL, "/"),
		clock:     clk,
		log:       log.Named("payment_link"),
	}
}

// Create opens a hosted checkout and stores the link. Nothing is persisted
// when the processor rejects the request.
func (s *paymentLinkServiceImpl) Create(ctx context.Context, in *CreatePaymentLinkInput) (*model.PaymentLink, error) {
	if in.Amount < s.cfg.MinimumAmount {
		return nil, fmt.Errorf("%w: minimum is %d", ErrInvalidAmount, s.cfg.MinimumAmount)
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}

	linkID := uuid.NewString()
	resp, err := s.processor.CreateCheckout(ctx, &client.CheckoutRequest{
		PaymentLinkID: linkID,
		Amount:        in.Amount,
		Currency:      currency,
		Description:   in.Description,
		Customer:      in.Customer,
		ReturnURL:     s.baseURL + "/payment-links/" + linkID,
	})
	if err != nil {
		s.log.Warn("Checkout creation failed", zap.String("user_id", in.UserID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrProcessorUnavailable, err)
	}

	now := s.clock.Now()
	link := &model.PaymentLink{
		ID:             linkID,
		UserID:         in.UserID,
		Amount:         in.Amount,
		Description:    in.Description,
		Currency:       currency,
		Status:         model.PaymentLinkStatusActive,
		ProcessorToken: resp.Reference,
		CheckoutURL:    resp.CheckoutURL,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.linkRepo.Create(ctx, link); err != nil {
		return nil, fmt.Errorf("save payment link: %w", err)
	}

	s.log.Info("Payment link created",
		zap.String("payment_link_id", link.ID),
		zap.String("user_id", link.UserID),
		zap.Int64("amount", link.Amount))
	return link, nil
}

func (s *paymentLinkServiceImpl) Get(ctx context.Context, id string) (*model.PaymentLink, error) {
	return s.linkRepo.FindByID(ctx, id)
}
