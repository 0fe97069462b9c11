package handler

import (
	"errors"
	"io"
	"net/http"

	"merchant-settlement/internal/dto"
	"merchant-settlement/internal/service"

	"github.com/labstack/echo/v4"
)

type WebhookHandler struct {
	webhookService service.WebhookService
}

func NewWebhookHandler(webhookService service.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
	}
}

func (h *WebhookHandler) PaymentWebhook(c echo.Context) error {
	return h.handle(c, service.WebhookSourcePayment)
}

func (h *WebhookHandler) PayoutWebhook(c echo.Context) error {
	return h.handle(c, service.WebhookSourcePayout)
}

func (h *WebhookHandler) handle(c echo.Context, source string) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	result, err := h.webhookService.Handle(ctx, source, c.Request().Header, body)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, &dto.WebhookResponse{
		Status:    result.Outcome,
		Event:     result.Event,
		Reference: result.Reference,
	})
}
