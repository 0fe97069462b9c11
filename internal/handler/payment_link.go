package handler

import (
	"net/http"

	"merchant-settlement/internal/client"
	"merchant-settlement/internal/dto"
	"merchant-settlement/internal/middleware"
	"merchant-settlement/internal/service"

	"github.com/labstack/echo/v4"
)

type PaymentLinkHandler struct {
	paymentLinkService service.PaymentLinkService
}

func NewPaymentLinkHandler(paymentLinkService service.PaymentLinkService) *PaymentLinkHandler {
	return &PaymentLinkHandler{
		paymentLinkService: paymentLinkService,
	}
}

func (h *PaymentLinkHandler) CreatePaymentLink(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreatePaymentLinkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	link, err := h.paymentLinkService.Create(ctx, &service.CreatePaymentLinkInput{
		UserID:      middleware.UserID(c),
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		Customer: client.Customer{
			FirstName: req.Customer.FirstName,
			LastName:  req.Customer.LastName,
			Email:     req.Customer.Email,
			Phone:     req.Customer.Phone,
		},
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, &dto.CreatePaymentLinkResponse{
		PaymentLinkID: link.ID,
		CheckoutURL:   link.CheckoutURL,
	})
}
