package worker

import (
	"context"
	"time"

	"merchant-settlement/internal/service"

	"go.uber.org/zap"
)

const sweepBatchSize = 100

// PayoutSweeper periodically fails payouts stuck in pending without a
// processor id, releasing their reservations.
type PayoutSweeper struct {
	payouts    service.PayoutService
	interval   time.Duration
	staleAfter time.Duration
	log        *zap.Logger
}

func NewPayoutSweeper(payouts service.PayoutService, interval, staleAfter time.Duration, log *zap.Logger) *PayoutSweeper {
	return &PayoutSweeper{
		payouts:    payouts,
		interval:   interval,
		staleAfter: staleAfter,
		log:        log.Named("payout_sweeper"),
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (w *PayoutSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("Payout sweeper started",
		zap.Duration("interval", w.interval),
		zap.Duration("stale_after", w.staleAfter))

	for {
		w.sweep(ctx)
		select {
		case <-ctx.Done():
			w.log.Info("Payout sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

func (w *PayoutSweeper) sweep(ctx context.Context) {
	for {
		n, err := w.payouts.SweepStale(ctx, w.staleAfter, sweepBatchSize)
		if err != nil {
			if ctx.Err() == nil {
				w.log.Error("Payout sweep failed", zap.Error(err))
			}
			return
		}
		if n < sweepBatchSize {
			return
		}
	}
}
