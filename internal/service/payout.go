package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"merchant-settlement/internal/client"
	"merchant-settlement/internal/clock"
	"merchant-settlement/internal/config"
	"merchant-settlement/internal/events"
	"merchant-settlement/internal/metrics"
	"merchant-settlement/internal/model"
	"merchant-settlement/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	FailureReasonProcessorUnavailable = "processor_unavailable"
	FailureReasonInsufficientFunds    = "insufficient_funds"
	FailureReasonStale                = "stale_without_processor_id"
)

// Destination is a mobile money wallet that receives a payout.
type Destination struct {
	Provider  string
	Phone     string
	FirstName string
	LastName  string
	Email     string
}

type InitiatePayoutInput struct {
	UserID      string
	Amount      int64
	Currency    string
	Description string
	Destination Destination
	Source      string
	// TransactionID links an automatic transfer to the payment that funded
	// it. The payment's follow-up is claimed in the same transaction that
	// records the payout.
	TransactionID *string
}

// errFollowUpTaken reports that another delivery already started the
// transfer for the same payment.
var errFollowUpTaken = errors.New("payment follow-up already taken")

type PayoutService interface {
	// Initiate reserves the amount, records a pending payout and asks the
	// processor to send it. On processor failure the payout is returned in
	// the failed state together with an error wrapping ErrProcessorUnavailable.
	// Nothing is persisted when the returned payout is nil.
	Initiate(ctx context.Context, in *InitiatePayoutInput) (*model.Payout, error)
	// FailPending moves a pending payout to failed inside tx and releases its
	// reservation. It reports false when the payout was no longer pending.
	FailPending(ctx context.Context, tx *gorm.DB, payout *model.Payout, reason string, now time.Time) (bool, error)
	SweepStale(ctx context.Context, olderThan time.Duration, limit int) (int, error)
	List(ctx context.Context, userID string, limit int) ([]*model.Payout, error)
}

type payoutServiceImpl struct {
	db              *gorm.DB
	payoutRepo      repository.PayoutRepository
	walletRepo      repository.WalletRepository
	transactionRepo repository.TransactionRepository
	stats           StatsService
	processor       client.PayoutProcessor
	cfg             *config.Ledger
	clock           clock.Clock
	metrics         *metrics.Metrics
	notifier        *ledgerNotifier
	log             *zap.Logger
}

func NewPayoutService(
	db *gorm.DB,
	payoutRepo repository.PayoutRepository,
	walletRepo repository.WalletRepository,
	transactionRepo repository.TransactionRepository,
	statsRepo repository.StatsRepository,
	stats StatsService,
	processor client.PayoutProcessor,
	cfg *config.Ledger,
	clk clock.Clock,
	m *metrics.Metrics,
	publisher events.Publisher,
	log *zap.Logger,
) PayoutService {
	log = log.Named("payout")
	return &payoutServiceImpl{
		db:              db,
		payoutRepo:      payoutRepo,
		walletRepo:      walletRepo,
		transactionRepo: transactionRepo,
		stats:           stats,
		processor:       processor,
		cfg:             cfg,
		clock:           clk,
		metrics:         m,
		notifier:        newLedgerNotifier(publisher, walletRepo, statsRepo, clk, log),
		log:             log,
	}
}

func (s *payoutServiceImpl) Initiate(ctx context.Context, in *InitiatePayoutInput) (*model.Payout, error) {
	source := in.Source
	if source == "" {
		source = model.PayoutSourceManual
	}
	if in.Amount <= 0 {
		s.metrics.RecordPayout(source, metrics.OutcomeRejected)
		return nil, fmt.Errorf("%w: payout amount must be positive", ErrInvalidAmount)
	}
	dest := in.Destination
	if strings.TrimSpace(dest.Provider) == "" || strings.TrimSpace(dest.Phone) == "" {
		s.metrics.RecordPayout(source, metrics.OutcomeRejected)
		return nil, fmt.Errorf("%w: provider and phone are required", ErrInvalidDestination)
	}
	currency := in.Currency
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}

	now := s.clock.Now()
	payout := &model.Payout{
		ID:                uuid.NewString(),
		UserID:            in.UserID,
		Amount:            in.Amount,
		Currency:          currency,
		Status:            model.PayoutStatusPending,
		Method:            dest.Provider,
		Source:            source,
		TransactionID:     in.TransactionID,
		CustomerFirstName: dest.FirstName,
		CustomerLastName:  dest.LastName,
		CustomerPhone:     dest.Phone,
		CustomerEmail:     dest.Email,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.TransactionID != nil {
			claimed, err := s.transactionRepo.ClaimProcessing(ctx, tx, *in.TransactionID)
			if err != nil {
				return fmt.Errorf("claim follow-up: %w", err)
			}
			if !claimed {
				return errFollowUpTaken
			}
		}
		ok, err := s.walletRepo.Reserve(ctx, tx, in.UserID, in.Amount, now)
		if err != nil {
			return fmt.Errorf("reserve funds: %w", err)
		}
		if !ok {
			return ErrInsufficientFunds
		}
		if err := s.payoutRepo.Create(ctx, tx, payout); err != nil {
			return fmt.Errorf("create payout: %w", err)
		}
		return s.stats.RecordPayoutRequested(ctx, tx, in.UserID, now)
	})
	if errors.Is(err, errFollowUpTaken) {
		return nil, err
	}
	if err != nil {
		s.metrics.RecordPayout(source, metrics.OutcomeRejected)
		if !errors.Is(err, ErrInsufficientFunds) {
			s.log.Error("Failed to record payout", zap.String("user_id", in.UserID), zap.Error(err))
		}
		return nil, err
	}
	s.notifier.payoutChanged(payout)
	s.notifier.balancesChanged(ctx, in.UserID)

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.PayoutTimeout)
	resp, callErr := s.processor.InitiatePayout(callCtx, &client.PayoutRequest{
		PayoutID:    payout.ID,
		Amount:      payout.Amount,
		Currency:    payout.Currency,
		Method:      payout.Method,
		Phone:       payout.CustomerPhone,
		Description: in.Description,
		Customer: client.Customer{
			FirstName: dest.FirstName,
			LastName:  dest.LastName,
			Email:     dest.Email,
			Phone:     dest.Phone,
		},
	})
	cancel()
	if callErr != nil {
		s.log.Warn("Payout initiation failed",
			zap.String("payout_id", payout.ID),
			zap.String("user_id", payout.UserID),
			zap.Error(callErr))
		s.metrics.RecordPayout(source, metrics.OutcomeFailed)

		// The request context may already be gone; the reservation must
		// still be released.
		releaseCtx := context.WithoutCancel(ctx)
		if err := s.fail(releaseCtx, payout, FailureReasonProcessorUnavailable); err != nil {
			s.log.Error("Failed to release payout reservation", zap.String("payout_id", payout.ID), zap.Error(err))
			return payout, fmt.Errorf("%w: %v (release: %v)", ErrProcessorUnavailable, callErr, err)
		}
		return payout, fmt.Errorf("%w: %v", ErrProcessorUnavailable, callErr)
	}

	if resp.ProcessorPayoutID != "" {
		err := s.payoutRepo.SetProcessorPayoutID(ctx, s.db.WithContext(ctx), payout.ID, resp.ProcessorPayoutID, s.clock.Now())
		if err != nil {
			// The webhook can still resolve the payout through its metadata.
			s.log.Error("Failed to store processor payout id",
				zap.String("payout_id", payout.ID),
				zap.String("processor_payout_id", resp.ProcessorPayoutID),
				zap.Error(err))
		}
		pid := resp.ProcessorPayoutID
		payout.ProcessorPayoutID = &pid
	}

	s.metrics.RecordPayout(source, metrics.OutcomeInitiated)
	s.log.Info("Payout initiated",
		zap.String("payout_id", payout.ID),
		zap.String("user_id", payout.UserID),
		zap.Int64("amount", payout.Amount),
		zap.String("source", source))
	return payout, nil
}

func (s *payoutServiceImpl) fail(ctx context.Context, payout *model.Payout, reason string) error {
	now := s.clock.Now()
	var failed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		failed, err = s.FailPending(ctx, tx, payout, reason, now)
		return err
	})
	if err != nil {
		return err
	}
	if failed {
		payout.Status = model.PayoutStatusFailed
		payout.FailureReason = reason
		payout.UpdatedAt = now
		s.notifier.payoutChanged(payout)
		s.notifier.balancesChanged(ctx, payout.UserID)
		s.notifier.notify(payout.UserID, payout.ID, "Payout failed: "+reason)
	}
	return nil
}

func (s *payoutServiceImpl) FailPending(ctx context.Context, tx *gorm.DB, payout *model.Payout, reason string, now time.Time) (bool, error) {
	ok, err := s.payoutRepo.Transition(ctx, tx, payout.ID, model.PayoutStatusPending, model.PayoutStatusFailed, reason, now)
	if err != nil {
		return false, fmt.Errorf("fail payout: %w", err)
	}
	if !ok {
		return false, nil
	}
	if err := s.walletRepo.Release(ctx, tx, payout.UserID, payout.Amount, now); err != nil {
		return false, fmt.Errorf("release reservation: %w", err)
	}
	if err := s.stats.RecordPayoutDropped(ctx, tx, payout.UserID, now); err != nil {
		return false, err
	}
	return true, nil
}

// SweepStale fails payouts that never received a processor id. Such a payout
// cannot be matched by a webhook and would otherwise hold its reservation
// forever.
func (s *payoutServiceImpl) SweepStale(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	cutoff := s.clock.Now().Add(-olderThan)
	stale, err := s.payoutRepo.ListStale(ctx, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("list stale payouts: %w", err)
	}

	swept := 0
	for _, payout := range stale {
		if err := ctx.Err(); err != nil {
			return swept, err
		}
		before := payout.Status
		if err := s.fail(ctx, payout, FailureReasonStale); err != nil {
			s.log.Error("Failed to sweep payout", zap.String("payout_id", payout.ID), zap.Error(err))
			continue
		}
		if before != payout.Status {
			swept++
		}
	}

	s.metrics.RecordSweptPayouts(swept)
	if swept > 0 {
		s.log.Info("Swept stale payouts", zap.Int("count", swept))
	}
	return swept, nil
}

func (s *payoutServiceImpl) List(ctx context.Context, userID string, limit int) ([]*model.Payout, error) {
	return s.payoutRepo.ListByUser(ctx, userID, limit)
}
