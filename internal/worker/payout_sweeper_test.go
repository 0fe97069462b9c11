package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"merchant-settlement/internal/service"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubPayouts struct {
	service.PayoutService

	mu      sync.Mutex
	results []int
	err     error
	calls   int
	swept   chan struct{}
}

func (s *stubPayouts) SweepStale(_ context.Context, olderThan time.Duration, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	defer func() {
		select {
		case s.swept <- struct{}{}:
		default:
		}
	}()
	if s.err != nil {
		return 0, s.err
	}
	if len(s.results) == 0 {
		return 0, nil
	}
	n := s.results[0]
	s.results = s.results[1:]
	return n, nil
}

func TestSweeperDrainsFullBatches(t *testing.T) {
	payouts := &stubPayouts{results: []int{sweepBatchSize, sweepBatchSize, 3}, swept: make(chan struct{}, 10)}
	w := NewPayoutSweeper(payouts, time.Hour, 24*time.Hour, zap.NewNop())

	w.sweep(context.Background())

	assert.Equal(t, 3, payouts.calls)
}

func TestSweeperStopsOnError(t *testing.T) {
	payouts := &stubPayouts{err: errors.New("db down"), swept: make(chan struct{}, 10)}
	w := NewPayoutSweeper(payouts, time.Hour, 24*time.Hour, zap.NewNop())

	w.sweep(context.Background())

	assert.Equal(t, 1, payouts.calls)
}

func TestSweeperRunsUntilCancelled(t *testing.T) {
	payouts := &stubPayouts{swept: make(chan struct{}, 100)}
	w := NewPayoutSweeper(payouts, 5*time.Millisecond, 24*time.Hour, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		select {
		case <-payouts.swept:
		case <-time.After(time.Second):
			t.Fatal("sweeper did not tick")
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
