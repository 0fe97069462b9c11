package service

import (
	"context"

	"merchant-settlement/internal/clock"
	"merchant-settlement/internal/events"
	"merchant-settlement/internal/model"
	"merchant-settlement/internal/repository"

	"go.uber.org/zap"
)

// ledgerNotifier publishes change events after a commit. Publishing is best
// effort and never fails the ledger operation.
type ledgerNotifier struct {
	publisher  events.Publisher
	walletRepo repository.WalletRepository
	statsRepo  repository.StatsRepository
	clock      clock.Clock
	log        *zap.Logger
}

func newLedgerNotifier(
	publisher events.Publisher,
	walletRepo repository.WalletRepository,
	statsRepo repository.StatsRepository,
	clk clock.Clock,
	log *zap.Logger,
) *ledgerNotifier {
	return &ledgerNotifier{
		publisher:  publisher,
		walletRepo: walletRepo,
		statsRepo:  statsRepo,
		clock:      clk,
		log:        log,
	}
}

func (n *ledgerNotifier) publish(event events.Event) {
	if n.publisher == nil {
		return
	}
	event.OccurredAt = n.clock.Now()
	n.publisher.Publish(event)
}

func (n *ledgerNotifier) balancesChanged(ctx context.Context, userID string) {
	if n.publisher == nil {
		return
	}

	if wallet, err := n.walletRepo.Get(ctx, userID); err == nil {
		n.publish(events.Event{Kind: events.KindWalletChanged, UserID: userID, Data: wallet})
	} else {
		n.log.Debug("Wallet snapshot unavailable", zap.String("user_id", userID), zap.Error(err))
	}

	if stats, err := n.statsRepo.Get(ctx, userID); err == nil {
		n.publish(events.Event{Kind: events.KindStatsChanged, UserID: userID, Data: stats})
	} else {
		n.log.Debug("Stats snapshot unavailable", zap.String("user_id", userID), zap.Error(err))
	}
}

func (n *ledgerNotifier) transactionChanged(t *model.Transaction) {
	n.publish(events.Event{Kind: events.KindTransactionChanged, UserID: t.UserID, EntityID: t.ID, Data: t})
}

func (n *ledgerNotifier) payoutChanged(p *model.Payout) {
	n.publish(events.Event{Kind: events.KindPayoutChanged, UserID: p.UserID, EntityID: p.ID, Data: p})
}

func (n *ledgerNotifier) notify(userID, entityID, message string) {
	n.publish(events.Event{Kind: events.KindNotification, UserID: userID, EntityID: entityID, Message: message})
}
