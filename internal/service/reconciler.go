package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"merchant-settlement/internal/clock"
	"merchant-settlement/internal/events"
	"merchant-settlement/internal/metrics"
	"merchant-settlement/internal/model"
	"merchant-settlement/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PaymentResult struct {
	Transaction *model.Transaction
	Duplicate   bool
	// Payout is the automatic transfer started for this payment, if any.
	Payout          *model.Payout
	AutoTransferErr error
}

type PayoutResult struct {
	Payout    *model.Payout
	Duplicate bool
	// Err is ErrInsufficientFunds when a success report could not be debited.
	Err error
}

type ApplyResult struct {
	Event     string
	Reference string
	Outcome   string
	Payment   *PaymentResult
	Payout    *PayoutResult
}

// ReconcilerService applies processor events to the ledger. Every method is
// safe to call any number of times with the same event.
type ReconcilerService interface {
	Apply(ctx context.Context, event model.LedgerEvent) (*ApplyResult, error)
	ApplyPayment(ctx context.Context, event model.PaymentSucceeded) (*PaymentResult, error)
	ApplyPayoutOutcome(ctx context.Context, processorPayoutID, payoutID string, succeeded bool, reason string) (*PayoutResult, error)
}

type reconcilerServiceImpl struct {
	db              *gorm.DB
	linkRepo        repository.PaymentLinkRepository
	transactionRepo repository.TransactionRepository
	payoutRepo      repository.PayoutRepository
	walletRepo      repository.WalletRepository
	stats           StatsService
	settings        SettingsService
	payouts         PayoutService
	clock           clock.Clock
	metrics         *metrics.Metrics
	notifier        *ledgerNotifier
	log             *zap.Logger
}

func NewReconcilerService(
	db *gorm.DB,
	linkRepo repository.PaymentLinkRepository,
	transactionRepo repository.TransactionRepository,
	payoutRepo repository.PayoutRepository,
	walletRepo repository.WalletRepository,
	statsRepo repository.StatsRepository,
	stats StatsService,
	settings SettingsService,
	payouts PayoutService,
	clk clock.Clock,
	m *metrics.Metrics,
	publisher events.Publisher,
	log *zap.Logger,
) ReconcilerService {
	log = log.Named("reconciler")
	return &reconcilerServiceImpl{
		db:              db,
		linkRepo:        linkRepo,
		transactionRepo: transactionRepo,
		payoutRepo:      payoutRepo,
		walletRepo:      walletRepo,
		stats:           stats,
		settings:        settings,
		payouts:         payouts,
		clock:           clk,
		metrics:         m,
		notifier:        newLedgerNotifier(publisher, walletRepo, statsRepo, clk, log),
		log:             log,
	}
}

func (s *reconcilerServiceImpl) Apply(ctx context.Context, event model.LedgerEvent) (*ApplyResult, error) {
	start := time.Now()
	result := &ApplyResult{Event: event.EventName(), Reference: event.Reference()}
	label := result.Event

	var err error
	switch e := event.(type) {
	case model.PaymentSucceeded:
		result.Payment, err = s.ApplyPayment(ctx, e)
		if err == nil {
			result.Outcome = metrics.OutcomeApplied
			if result.Payment.Duplicate {
				result.Outcome = metrics.OutcomeDuplicate
			}
		}
	case model.PayoutSucceeded:
		result.Payout, err = s.ApplyPayoutOutcome(ctx, e.ProcessorPayoutID, e.PayoutID, true, "")
		if err == nil {
			result.Outcome = payoutOutcome(result.Payout)
		}
	case model.PayoutFailed:
		result.Payout, err = s.ApplyPayoutOutcome(ctx, e.ProcessorPayoutID, e.PayoutID, false, e.Reason)
		if err == nil {
			result.Outcome = payoutOutcome(result.Payout)
		}
	default:
		label = "unrecognized"
		result.Outcome = metrics.OutcomeIgnored
		s.log.Info("Ignoring webhook event", zap.String("event", event.EventName()), zap.String("reference", event.Reference()))
	}
	s.metrics.ObserveReconcile(label, time.Since(start))

	if err != nil {
		outcome := metrics.OutcomeError
		if errors.Is(err, ErrUnknownPaymentLink) || errors.Is(err, ErrUnknownPayout) {
			outcome = metrics.OutcomeUnknownReference
		}
		s.metrics.RecordWebhook(label, outcome)
		return nil, err
	}
	s.metrics.RecordWebhook(label, result.Outcome)
	return result, nil
}

func payoutOutcome(r *PayoutResult) string {
	switch {
	case r.Duplicate:
		return metrics.OutcomeDuplicate
	case errors.Is(r.Err, ErrInsufficientFunds):
		return metrics.OutcomeInsufficientFunds
	}
	return metrics.OutcomeApplied
}

func (s *reconcilerServiceImpl) findPaymentLink(ctx context.Context, event model.PaymentSucceeded) (*model.PaymentLink, error) {
	link, err := s.linkRepo.FindByProcessorToken(ctx, event.ProcessorReference)
	if err == nil {
		return link, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find payment link: %w", err)
	}

	if event.PaymentLinkID != "" {
		link, err = s.linkRepo.FindByID(ctx, event.PaymentLinkID)
		if err == nil {
			return link, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find payment link: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPaymentLink, event.ProcessorReference)
}

// ApplyPayment records a confirmed payment exactly once and credits the
// seller's net share. Redeliveries return the stored transaction.
func (s *reconcilerServiceImpl) ApplyPayment(ctx context.Context, event model.PaymentSucceeded) (*PaymentResult, error) {
	event.ProcessorReference = strings.TrimSpace(event.ProcessorReference)
	if event.ProcessorReference == "" {
		return nil, fmt.Errorf("%w: missing payment reference", ErrMalformedWebhook)
	}

	existing, err := s.transactionRepo.FindByProcessorReference(ctx, event.ProcessorReference)
	if err == nil {
		return s.duplicatePayment(ctx, existing), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find transaction: %w", err)
	}

	link, err := s.findPaymentLink(ctx, event)
	if err != nil {
		return nil, err
	}
	feePercent, err := s.settings.GetFeePercentage(ctx, link.UserID)
	if err != nil {
		return nil, err
	}

	amount := event.Amount
	if amount <= 0 {
		amount = link.Amount
	}
	currency := event.Currency
	if currency == "" {
		currency = link.Currency
	}
	fee, net := SplitFee(amount, feePercent)
	now := s.clock.Now()
	linkID := link.ID

	transaction := &model.Transaction{
		ID:                 uuid.NewString(),
		UserID:             link.UserID,
		PaymentLinkID:      &linkID,
		Amount:             amount,
		FeeAmount:          fee,
		NetAmount:          net,
		Currency:           currency,
		Type:               model.TransactionTypePayment,
		Status:             model.TransactionStatusCompleted,
		ProcessorReference: event.ProcessorReference,
		CustomerName:       event.Customer.FullName(),
		CustomerContact:    event.Customer.Contact(),
		CreatedAt:          now,
	}

	inserted := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.transactionRepo.CreateIfAbsent(ctx, tx, transaction)
		if err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		if !ok {
			return nil
		}
		inserted = true

		if err := s.walletRepo.Credit(ctx, tx, link.UserID, net, now); err != nil {
			return fmt.Errorf("credit wallet: %w", err)
		}
		if err := s.stats.RecordSale(ctx, tx, link.UserID, amount, net, now); err != nil {
			return err
		}
		if err := s.linkRepo.MarkCompleted(ctx, tx, link.ID); err != nil {
			return fmt.Errorf("complete payment link: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.Error("Failed to apply payment",
			zap.String("reference", event.ProcessorReference),
			zap.String("user_id", link.UserID),
			zap.Error(err))
		return nil, err
	}

	if !inserted {
		existing, err := s.transactionRepo.FindByProcessorReference(ctx, event.ProcessorReference)
		if err != nil {
			return nil, fmt.Errorf("find transaction: %w", err)
		}
		return s.duplicatePayment(ctx, existing), nil
	}

	s.log.Info("Payment applied",
		zap.String("reference", transaction.ProcessorReference),
		zap.String("user_id", transaction.UserID),
		zap.Int64("amount", transaction.Amount),
		zap.Int64("net_amount", transaction.NetAmount))
	s.notifier.transactionChanged(transaction)
	s.notifier.balancesChanged(ctx, transaction.UserID)

	result := &PaymentResult{Transaction: transaction}
	s.followUp(ctx, transaction, result)
	return result, nil
}

func (s *reconcilerServiceImpl) duplicatePayment(ctx context.Context, transaction *model.Transaction) *PaymentResult {
	s.log.Info("Duplicate payment event", zap.String("reference", transaction.ProcessorReference))
	result := &PaymentResult{Transaction: transaction, Duplicate: true}
	// A crash after the credit committed leaves the follow-up unclaimed.
	s.followUp(ctx, transaction, result)
	return result
}

// followUp runs the post-payment work once per transaction: the automatic
// transfer when the seller enabled it. The follow-up stays unclaimed until a
// payout is recorded, so a redelivery retries anything that failed earlier.
// Its failure never undoes the credit.
func (s *reconcilerServiceImpl) followUp(ctx context.Context, transaction *model.Transaction, result *PaymentResult) {
	if transaction.Processed {
		return
	}

	autoTransfer, err := s.settings.GetAutoTransferConfig(ctx, transaction.UserID)
	if err != nil {
		s.log.Error("Failed to load auto transfer settings", zap.String("user_id", transaction.UserID), zap.Error(err))
		result.AutoTransferErr = err
		return
	}
	if !autoTransfer.Ready() || transaction.NetAmount <= 0 {
		if _, err := s.transactionRepo.ClaimProcessing(ctx, s.db, transaction.ID); err != nil {
			s.log.Error("Failed to close transaction follow-up", zap.String("transaction_id", transaction.ID), zap.Error(err))
			return
		}
		transaction.Processed = true
		return
	}

	transactionID := transaction.ID
	payout, err := s.payouts.Initiate(ctx, &InitiatePayoutInput{
		UserID:        transaction.UserID,
		Amount:        transaction.NetAmount,
		Currency:      transaction.Currency,
		Description:   "Automatic transfer for " + transaction.ProcessorReference,
		Destination:   autoTransfer.Destination(),
		Source:        model.PayoutSourceAutoTransfer,
		TransactionID: &transactionID,
	})
	if errors.Is(err, errFollowUpTaken) {
		transaction.Processed = true
		return
	}
	if payout != nil {
		transaction.Processed = true
	}
	result.Payout = payout
	if err != nil {
		result.AutoTransferErr = err
		s.log.Warn("Automatic transfer failed",
			zap.String("transaction_id", transaction.ID),
			zap.String("user_id", transaction.UserID),
			zap.Bool("retryable", payout == nil),
			zap.Error(err))
		if payout == nil {
			s.notifier.notify(transaction.UserID, transaction.ID, "Automatic transfer could not start: "+err.Error())
		}
	}
}

func (s *reconcilerServiceImpl) findPayout(ctx context.Context, processorPayoutID, payoutID string) (*model.Payout, error) {
	if processorPayoutID != "" {
		payout, err := s.payoutRepo.FindByProcessorPayoutID(ctx, processorPayoutID)
		if err == nil {
			return payout, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find payout: %w", err)
		}
	}
	// The webhook can beat the initiation response that stores the
	// processor id; the payout id travels in the metadata.
	if payoutID != "" {
		payout, err := s.payoutRepo.FindByID(ctx, payoutID)
		if err == nil {
			return payout, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find payout: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPayout, firstNonEmpty(processorPayoutID, payoutID))
}

// ApplyPayoutOutcome settles or fails a pending payout. A success debits the
// wallet; a failure only releases the reservation.
func (s *reconcilerServiceImpl) ApplyPayoutOutcome(ctx context.Context, processorPayoutID, payoutID string, succeeded bool, reason string) (*PayoutResult, error) {
	processorPayoutID = strings.TrimSpace(processorPayoutID)
	payout, err := s.findPayout(ctx, processorPayoutID, strings.TrimSpace(payoutID))
	if err != nil {
		return nil, err
	}
	if payout.IsTerminal() {
		s.log.Info("Duplicate payout event", zap.String("payout_id", payout.ID), zap.String("status", payout.Status))
		return &PayoutResult{Payout: payout, Duplicate: true}, nil
	}

	now := s.clock.Now()
	result := &PayoutResult{}
	applied := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if payout.ProcessorPayoutID == nil && processorPayoutID != "" {
			if err := s.payoutRepo.SetProcessorPayoutID(ctx, tx, payout.ID, processorPayoutID, now); err != nil {
				return fmt.Errorf("store processor payout id: %w", err)
			}
		}

		if !succeeded {
			failed, err := s.payouts.FailPending(ctx, tx, payout, reason, now)
			applied = failed
			return err
		}

		claimed, err := s.payoutRepo.Transition(ctx, tx, payout.ID, model.PayoutStatusPending, model.PayoutStatusCompleted, "", now)
		if err != nil {
			return fmt.Errorf("complete payout: %w", err)
		}
		if !claimed {
			return nil
		}
		applied = true

		debited, err := s.walletRepo.Debit(ctx, tx, payout.UserID, payout.Amount, now)
		if err != nil {
			return fmt.Errorf("debit wallet: %w", err)
		}
		if debited {
			return s.stats.RecordPayoutSettled(ctx, tx, payout.UserID, payout.Amount, now)
		}

		result.Err = ErrInsufficientFunds
		if _, err := s.payoutRepo.Transition(ctx, tx, payout.ID, model.PayoutStatusCompleted, model.PayoutStatusFailed, FailureReasonInsufficientFunds, now); err != nil {
			return fmt.Errorf("fail payout: %w", err)
		}
		if err := s.walletRepo.Release(ctx, tx, payout.UserID, payout.Amount, now); err != nil {
			return fmt.Errorf("release reservation: %w", err)
		}
		return s.stats.RecordPayoutDropped(ctx, tx, payout.UserID, now)
	})
	if err != nil {
		s.log.Error("Failed to apply payout outcome", zap.String("payout_id", payout.ID), zap.Error(err))
		return nil, err
	}

	if stored, err := s.payoutRepo.FindByID(ctx, payout.ID); err == nil {
		payout = stored
	}
	result.Payout = payout
	if !applied {
		result.Duplicate = true
		return result, nil
	}

	s.log.Info("Payout outcome applied",
		zap.String("payout_id", payout.ID),
		zap.String("user_id", payout.UserID),
		zap.String("status", payout.Status),
		zap.String("reason", payout.FailureReason))
	s.notifier.payoutChanged(payout)
	s.notifier.balancesChanged(ctx, payout.UserID)
	if payout.Status == model.PayoutStatusFailed {
		s.notifier.notify(payout.UserID, payout.ID, "Payout failed: "+payout.FailureReason)
	}
	return result, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
