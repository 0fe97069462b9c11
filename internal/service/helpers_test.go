package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"merchant-settlement/internal/client"
	"merchant-settlement/internal/clock"
	"merchant-settlement/internal/config"
	"merchant-settlement/internal/events"
	"merchant-settlement/internal/metrics"
	"merchant-settlement/internal/model"
	"merchant-settlement/internal/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testSeller        = "seller-1"
	testWebhookSecret = "whsec_test"
)

var dbSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	url := fmt.Sprintf("sqlite://file:service_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := client.InitDatabase(url, zap.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type fakeProcessor struct {
	mu            sync.Mutex
	checkoutErr   error
	payoutErr     error
	omitPayoutID  bool
	checkouts     []*client.CheckoutRequest
	payouts       []*client.PayoutRequest
	checkoutCount int
	payoutCount   int
}

func (f *fakeProcessor) CreateCheckout(_ context.Context, req *client.CheckoutRequest) (*client.CheckoutResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.checkouts = append(f.checkouts, req)
	if f.checkoutErr != nil {
		return nil, f.checkoutErr
	}
	f.checkoutCount++
	ref := fmt.Sprintf("py_%d", f.checkoutCount)
	return &client.CheckoutResponse{Reference: ref, CheckoutURL: "https://checkout.test/" + ref}, nil
}

func (f *fakeProcessor) InitiatePayout(_ context.Context, req *client.PayoutRequest) (*client.PayoutResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.payouts = append(f.payouts, req)
	if f.payoutErr != nil {
		return nil, f.payoutErr
	}
	if f.omitPayoutID {
		return &client.PayoutResponse{}, nil
	}
	f.payoutCount++
	return &client.PayoutResponse{ProcessorPayoutID: fmt.Sprintf("po_%d", f.payoutCount)}, nil
}

func (f *fakeProcessor) payoutCalls() []*client.PayoutRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*client.PayoutRequest(nil), f.payouts...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) count(kind string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

type testEnv struct {
	db        *gorm.DB
	clock     *clock.FakeClock
	processor *fakeProcessor
	publisher *recordingPublisher
	metrics   *metrics.Metrics
	ledger    config.Ledger
	moneroo   config.Moneroo

	linkRepo        repository.PaymentLinkRepository
	transactionRepo repository.TransactionRepository
	payoutRepo      repository.PayoutRepository
	walletRepo      repository.WalletRepository
	statsRepo       repository.StatsRepository
	productRepo     repository.ProductRepository
	profileRepo     repository.ProfileRepository
	eventRepo       repository.WebhookEventRepository

	settings   SettingsService
	stats      StatsService
	payouts    PayoutService
	reconciler ReconcilerService
	links      PaymentLinkService
	webhooks   WebhookService
	accounts   AccountService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvAt(t, time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC), time.UTC)
}

func newTestEnvAt(t *testing.T, now time.Time, location *time.Location) *testEnv {
	t.Helper()

	env := &testEnv{
		db:        newTestDB(t),
		clock:     clock.NewFakeClock(now),
		processor: &fakeProcessor{},
		publisher: &recordingPublisher{},
		metrics:   metrics.New(prometheus.NewRegistry()),
		ledger: config.Ledger{
			MinimumAmount:     200,
			DefaultFeePercent: 5,
			DefaultCurrency:   "XOF",
			Timezone:          location.String(),
			PayoutTimeout:     time.Second,
			StalePayoutAfter:  24 * time.Hour,
			SweepInterval:     time.Minute,
		},
		moneroo: config.Moneroo{
			WebhookSecret:   testWebhookSecret,
			SignatureHeader: "X-Moneroo-Signature",
		},
	}
	log := zap.NewNop()

	env.linkRepo = repository.NewPaymentLinkRepository(env.db)
	env.transactionRepo = repository.NewTransactionRepository(env.db)
	env.payoutRepo = repository.NewPayoutRepository(env.db)
	env.walletRepo = repository.NewWalletRepository(env.db)
	env.statsRepo = repository.NewStatsRepository(env.db)
	env.productRepo = repository.NewProductRepository(env.db)
	env.profileRepo = repository.NewProfileRepository(env.db)
	env.eventRepo = repository.NewWebhookEventRepository(env.db)

	env.settings = NewSettingsService(env.profileRepo, env.ledger.DefaultFeePercent)
	env.stats = NewStatsService(env.db, env.statsRepo, env.productRepo, location, env.clock, log)
	env.payouts = NewPayoutService(env.db, env.payoutRepo, env.walletRepo, env.transactionRepo, env.statsRepo, env.stats,
		env.processor, &env.ledger, env.clock, env.metrics, env.publisher, log)
	env.reconciler = NewReconcilerService(env.db, env.linkRepo, env.transactionRepo, env.payoutRepo,
		env.walletRepo, env.statsRepo, env.stats, env.settings, env.payouts,
		env.clock, env.metrics, env.publisher, log)
	env.links = NewPaymentLinkService(env.linkRepo, env.processor, &env.ledger, "https://shop.test", env.clock, log)
	env.webhooks = NewWebhookService(env.reconciler, env.eventRepo, &env.moneroo, env.clock, env.metrics, log)
	env.accounts = NewAccountService(env.walletRepo, env.transactionRepo, env.profileRepo, env.productRepo,
		env.ledger.DefaultCurrency, env.clock)
	return env
}

func (e *testEnv) createLink(t *testing.T, userID string, amount int64) *model.PaymentLink {
	t.Helper()
	link, err := e.links.Create(context.Background(), &CreatePaymentLinkInput{
		UserID:      userID,
		Amount:      amount,
		Description: "order",
	})
	require.NoError(t, err)
	return link
}

func paymentFor(link *model.PaymentLink) model.PaymentSucceeded {
	return model.PaymentSucceeded{
		ProcessorReference: link.ProcessorToken,
		PaymentLinkID:      link.ID,
		Amount:             link.Amount,
		Currency:           link.Currency,
		Customer:           model.Customer{FirstName: "Ada", LastName: "Kpadonou", Phone: "+22990000000"},
	}
}

// pay creates a link and applies its successful payment.
func (e *testEnv) pay(t *testing.T, userID string, amount int64) *PaymentResult {
	t.Helper()
	link := e.createLink(t, userID, amount)
	result, err := e.reconciler.ApplyPayment(context.Background(), paymentFor(link))
	require.NoError(t, err)
	return result
}

func (e *testEnv) wallet(t *testing.T, userID string) *model.Wallet {
	t.Helper()
	wallet, err := e.accounts.GetWallet(context.Background(), userID)
	require.NoError(t, err)
	return wallet
}

func (e *testEnv) userStats(t *testing.T, userID string) *model.UserStats {
	t.Helper()
	stats, err := e.statsRepo.Get(context.Background(), userID)
	require.NoError(t, err)
	return stats
}

func (e *testEnv) enableAutoTransfer(t *testing.T, userID string, fee *decimal.Decimal) {
	t.Helper()
	_, err := e.accounts.UpdateProfile(context.Background(), &UpdateProfileInput{
		UserID:        userID,
		FirstName:     "Seller",
		LastName:      "One",
		FeePercentage: fee,
		AutoTransfer:  true,
		MomoProvider:  "mtn_bj",
		MomoNumber:    "+22991000000",
	})
	require.NoError(t, err)
}

func (e *testEnv) count(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(m).Count(&n).Error)
	return n
}
