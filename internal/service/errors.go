package service

import "errors"

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidDestination   = errors.New("invalid payout destination")
	ErrProcessorUnavailable = errors.New("payment processor unavailable")
	ErrUnknownPaymentLink   = errors.New("unknown payment link")
	ErrUnknownPayout        = errors.New("unknown payout")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrMalformedWebhook     = errors.New("malformed webhook")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
)
