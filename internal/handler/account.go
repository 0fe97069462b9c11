package handler

import (
	"net/http"

	"merchant-settlement/internal/dto"
	"merchant-settlement/internal/middleware"
	"merchant-settlement/internal/service"

	"github.com/labstack/echo/v4"
)

type AccountHandler struct {
	accountService service.AccountService
	statsService   service.StatsService
}

func NewAccountHandler(accountService service.AccountService, statsService service.StatsService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		statsService:   statsService,
	}
}

func (h *AccountHandler) GetWallet(c echo.Context) error {
	ctx := c.Request().Context()

	wallet, err := h.accountService.GetWallet(ctx, middleware.UserID(c))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, wallet)
}

func (h *AccountHandler) GetStats(c echo.Context) error {
	ctx := c.Request().Context()

	stats, err := h.statsService.Refresh(ctx, middleware.UserID(c))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, stats)
}

func (h *AccountHandler) ListTransactions(c echo.Context) error {
	ctx := c.Request().Context()

	transactions, err := h.accountService.ListTransactions(ctx, middleware.UserID(c), limitParam(c))
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, transactions)
}

func (h *AccountHandler) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	profile, err := h.accountService.UpdateProfile(ctx, &service.UpdateProfileInput{
		UserID:        middleware.UserID(c),
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		FeePercentage: req.FeePercentage,
		AutoTransfer:  req.AutoTransfer,
		MomoProvider:  req.MomoProvider,
		MomoNumber:    req.MomoNumber,
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, profile)
}

func (h *AccountHandler) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	visible := true
	if req.Visible != nil {
		visible = *req.Visible
	}
	product, err := h.accountService.CreateProduct(ctx, &service.CreateProductInput{
		UserID:   middleware.UserID(c),
		Name:     req.Name,
		Price:    req.Price,
		Currency: req.Currency,
		Visible:  visible,
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, product)
}
