package dto

import "github.com/shopspring/decimal"

type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type CreatePaymentLinkRequest struct {
	Amount      int64    `json:"amount"`
	Currency    string   `json:"currency"`
	Description string   `json:"description"`
	Customer    Customer `json:"customer"`
}

type CreatePaymentLinkResponse struct {
	PaymentLinkID string `json:"payment_link_id"`
	CheckoutURL   string `json:"checkout_url"`
}

type CreatePayoutRequest struct {
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Provider  string `json:"provider"`
	Phone     string `json:"phone"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type UpdateProfileRequest struct {
	FirstName     string           `json:"first_name"`
	LastName      string           `json:"last_name"`
	Email         string           `json:"email"`
	FeePercentage *decimal.Decimal `json:"fee_percentage"`
	AutoTransfer  bool             `json:"auto_transfer"`
	MomoProvider  string           `json:"momo_provider"`
	MomoNumber    string           `json:"momo_number"`
}

type CreateProductRequest struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
	Visible  *bool  `json:"visible"`
}

type WebhookResponse struct {
	Status    string `json:"status"`
	Event     string `json:"event,omitempty"`
	Reference string `json:"reference,omitempty"`
}
