package handler

import (
	"errors"
	"net/http"
	"strconv"

	"merchant-settlement/internal/service"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

func httpError(err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidDestination),
		errors.Is(err, service.ErrMalformedWebhook):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidSignature):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrUnknownPaymentLink),
		errors.Is(err, service.ErrUnknownPayout),
		errors.Is(err, gorm.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInsufficientFunds):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrProcessorUnavailable):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		return echo.NewHTTPError(status, http.StatusText(status)).SetInternal(err)
	}
	return echo.NewHTTPError(status, err.Error()).SetInternal(err)
}

func limitParam(c echo.Context) int {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 || limit > 200 {
		return service.DefaultListLimit
	}
	return limit
}
