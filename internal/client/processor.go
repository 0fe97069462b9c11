package client

import "context"

type Customer struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

type CheckoutRequest struct {
	PaymentLinkID string
	Amount        int64
	Currency      string
	Description   string
	Customer      Customer
	ReturnURL     string
}

type CheckoutResponse struct {
	Reference   string
	CheckoutURL string
}

// PaymentProcessor opens hosted checkouts. Outcomes arrive later as webhooks.
type PaymentProcessor interface {
	CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error)
}

type PayoutRequest struct {
	PayoutID    string
	Amount      int64
	Currency    string
	Method      string // mobile money operator, e.g. mtn_bj
	Phone       string
	Description string
	Customer    Customer
}

type PayoutResponse struct {
	ProcessorPayoutID string
}

// PayoutProcessor starts transfers to a mobile money wallet.
type PayoutProcessor interface {
	InitiatePayout(ctx context.Context, req *PayoutRequest) (*PayoutResponse, error)
}
