package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"merchant-settlement/internal/config"
)

type MonerooClient interface {
	PaymentProcessor
	PayoutProcessor
}

type monerooClientImpl struct {
	httpClient *http.Client
	baseApiURL string
	secretKey  string
}

type monerooCustomer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
}

type monerooPaymentRequest struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	ReturnURL   string            `json:"return_url,omitempty"`
	Customer    monerooCustomer   `json:"customer"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type monerooPayoutRequest struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	Method      string            `json:"method"`
	Customer    monerooCustomer   `json:"customer"`
	Recipient   map[string]string `json:"recipient"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type monerooResponse struct {
	Message string `json:"message"`
	Data    struct {
		ID          string `json:"id"`
		CheckoutURL string `json:"checkout_url"`
	} `json:"data"`
}

func NewMonerooClient(cfg *config.Moneroo) MonerooClient {
	return &monerooClientImpl{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseApiURL: strings.TrimRight(cfg.BaseApiURL, "/"),
		secretKey:  cfg.SecretKey,
	}
}

func (c *monerooClientImpl) CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	payload := monerooPaymentRequest{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		ReturnURL:   req.ReturnURL,
		Customer:    toMonerooCustomer(req.Customer),
		Metadata: map[string]string{
			"payment_link_id": req.PaymentLinkID,
		},
	}

	var result monerooResponse
	if err := c.post(ctx, "/v1/payments/initialize", payload, &result); err != nil {
		return nil, fmt.Errorf("moneroo initialize payment: %w", err)
	}
	if result.Data.ID == "" || result.Data.CheckoutURL == "" {
		return nil, fmt.Errorf("moneroo initialize payment: incomplete response %q", result.Message)
	}

	return &CheckoutResponse{
		Reference:   result.Data.ID,
		CheckoutURL: result.Data.CheckoutURL,
	}, nil
}

func (c *monerooClientImpl) InitiatePayout(ctx context.Context, req *PayoutRequest) (*PayoutResponse, error) {
	payload := monerooPayoutRequest{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		Method:      req.Method,
		Customer:    toMonerooCustomer(req.Customer),
		Recipient: map[string]string{
			"msisdn": req.Phone,
		},
		Metadata: map[string]string{
			"payout_id": req.PayoutID,
		},
	}

	var result monerooResponse
	if err := c.post(ctx, "/v1/payouts/initialize", payload, &result); err != nil {
		return nil, fmt.Errorf("moneroo initialize payout: %w", err)
	}
	if result.Data.ID == "" {
		return nil, fmt.Errorf("moneroo initialize payout: missing payout id %q", result.Message)
	}

	return &PayoutResponse{ProcessorPayoutID: result.Data.ID}, nil
}

func (c *monerooClientImpl) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal req payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseApiURL+path, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("moneroo error %d: %s", resp.StatusCode, string(b))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode moneroo response: %w", err)
	}
	return nil
}

func toMonerooCustomer(c Customer) monerooCustomer {
	return monerooCustomer{
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Phone:     c.Phone,
	}
}
