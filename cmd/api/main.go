package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"merchant-settlement/internal/client"
	"merchant-settlement/internal/clock"
	"merchant-settlement/internal/config"
	"merchant-settlement/internal/events"
	"merchant-settlement/internal/logger"
	"merchant-settlement/internal/metrics"
	"merchant-settlement/internal/repository"
	"merchant-settlement/internal/server"
	"merchant-settlement/internal/service"
	"merchant-settlement/internal/worker"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log, cfg.Environment.Name)
	if err != nil {
		fmt.Printf("Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if _, err := time.LoadLocation(cfg.Ledger.Timezone); err != nil {
		log.Fatal("Invalid ledger timezone", zap.String("timezone", cfg.Ledger.Timezone), zap.Error(err))
	}
	if cfg.Moneroo.WebhookSecret == "" {
		log.Warn("MONEROO_WEBHOOK_SECRET is empty, every webhook will be rejected")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := client.InitDatabase(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	clk := clock.New()
	bus := events.NewBus()

	if cfg.Redis.URL != "" {
		redisClient, err := client.InitRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()

		forwarder := events.NewRedisForwarder(redisClient, cfg.Redis.ChannelPrefix, log)
		go forwarder.Run(ctx, bus.Subscribe(""))
	}

	monerooClient := client.NewMonerooClient(&cfg.Moneroo)

	linkRepo := repository.NewPaymentLinkRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	productRepo := repository.NewProductRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	settingsService := service.NewSettingsService(profileRepo, cfg.Ledger.DefaultFeePercent)
	statsService := service.NewStatsService(db, statsRepo, productRepo, cfg.Ledger.Location(), clk, log)
	payoutService := service.NewPayoutService(
		db,
		payoutRepo,
		walletRepo,
		transactionRepo,
		statsRepo,
		statsService,
		monerooClient,
		&cfg.Ledger,
		clk, m, bus, log,
	)
	reconcilerService := service.NewReconcilerService(
		db,
		linkRepo,
		transactionRepo,
		payoutRepo,
		walletRepo,
		statsRepo,
		statsService,
		settingsService,
		payoutService,
		clk, m, bus, log,
	)
	webhookService := service.NewWebhookService(reconcilerService, webhookEventRepo, &cfg.Moneroo, clk, m, log)
	paymentLinkService := service.NewPaymentLinkService(linkRepo, monerooClient, &cfg.Ledger, cfg.BaseURL, clk, log)
	accountService := service.NewAccountService(walletRepo, transactionRepo, profileRepo, productRepo, cfg.Ledger.DefaultCurrency, clk)

	sweeper := worker.NewPayoutSweeper(payoutService, cfg.Ledger.SweepInterval, cfg.Ledger.StalePayoutAfter, log)
	go sweeper.Run(ctx)

	srv := server.NewServer(server.Services{
		PaymentLink: paymentLinkService,
		Payout:      payoutService,
		Webhook:     webhookService,
		Stats:       statsService,
		Account:     accountService,
	}, bus, registry, cfg.Auth.JWTSecret, log)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("Starting HTTP server", zap.String("address", serverAddr))
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
}
