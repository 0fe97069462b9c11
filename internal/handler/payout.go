package handler

import (
	"errors"
	"net/http"

	"merchant-settlement/internal/dto"
	"merchant-settlement/internal/middleware"
	"merchant-settlement/internal/model"
	"merchant-settlement/internal/service"

	"github.com/labstack/echo/v4"
)

type PayoutHandler struct {
	payoutService service.PayoutService
}

func NewPayoutHandler(payoutService service.PayoutService) *PayoutHandler {
	return &PayoutHandler{
		payoutService: payoutService,
	}
}

func (h *PayoutHandler) CreatePayout(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreatePayoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	payout, err := h.payoutService.Initiate(ctx, &service.InitiatePayoutInput{
		UserID:   middleware.UserID(c),
		Amount:   req.Amount,
		Currency: req.Currency,
		Destination: service.Destination{
			Provider:  req.Provider,
			Phone:     req.Phone,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
		},
		Source: model.PayoutSourceManual,
	})
	if err != nil {
		// The payout row exists and shows the failure; surface it with the error status.
		if payout != nil && errors.Is(err, service.ErrProcessorUnavailable) {
			return c.JSON(http.StatusBadGateway, payout)
		}
		return httpError(err)
	}

	return c.JSON(http.StatusAccepted, payout)
}

func (h *PayoutHandler) ListPayouts(c echo.Context) error {
	ctx := c.Request().Context()

	payouts, err := h.payoutService.List(ctx, middleware.UserID(c), limitParam(c))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, payouts)
}
