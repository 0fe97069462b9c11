package server

import (
	"context"
	"net/http"

	"merchant-settlement/internal/events"
	"merchant-settlement/internal/handler"
	"merchant-settlement/internal/logger"
	authmw "merchant-settlement/internal/middleware"
	"merchant-settlement/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const maxWebhookBody = "1M"

type Services struct {
	PaymentLink service.PaymentLinkService
	Payout      service.PayoutService
	Webhook     service.WebhookService
	Stats       service.StatsService
	Account     service.AccountService
}

type Server struct {
	echo               *echo.Echo
	gatherer           prometheus.Gatherer
	jwtSecret          string
	webhookHandler     *handler.WebhookHandler
	paymentLinkHandler *handler.PaymentLinkHandler
	payoutHandler      *handler.PayoutHandler
	accountHandler     *handler.AccountHandler
	eventsHandler      *handler.EventsHandler
}

func NewServer(services Services, bus *events.Bus, gatherer prometheus.Gatherer, jwtSecret string, log *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(logger.RequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:               e,
		gatherer:           gatherer,
		jwtSecret:          jwtSecret,
		webhookHandler:     handler.NewWebhookHandler(services.Webhook),
		paymentLinkHandler: handler.NewPaymentLinkHandler(services.PaymentLink),
		payoutHandler:      handler.NewPayoutHandler(services.Payout),
		accountHandler:     handler.NewAccountHandler(services.Account, services.Stats),
		eventsHandler:      handler.NewEventsHandler(bus, log),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	// -------- processor callbacks --------
	webhooks := s.echo.Group("/webhooks", middleware.BodyLimit(maxWebhookBody))
	webhooks.POST("/payment", s.webhookHandler.PaymentWebhook)
	webhooks.POST("/payout", s.webhookHandler.PayoutWebhook)

	api := s.echo.Group("/api")
	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// -------- seller dashboard --------
	seller := api.Group("", authmw.AuthMiddleware(s.jwtSecret))
	seller.POST("/payment-links", s.paymentLinkHandler.CreatePaymentLink)
	seller.POST("/payouts", s.payoutHandler.CreatePayout)
	seller.GET("/payouts", s.payoutHandler.ListPayouts)
	seller.GET("/wallet", s.accountHandler.GetWallet)
	seller.GET("/stats", s.accountHandler.GetStats)
	seller.GET("/transactions", s.accountHandler.ListTransactions)
	seller.PUT("/profile", s.accountHandler.UpdateProfile)
	seller.POST("/products", s.accountHandler.CreateProduct)
	seller.GET("/ws", s.eventsHandler.Stream)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
