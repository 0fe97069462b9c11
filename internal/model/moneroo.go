package model

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// WebhookEnvelope is the minimal body every processor callback carries.
type WebhookEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type WebhookCustomer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

type WebhookData struct {
	ID       string          `json:"id"`
	Status   string          `json:"status"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Customer WebhookCustomer `json:"customer"`
	Metadata map[string]any  `json:"metadata"`
	Reason   string          `json:"failure_reason"`
}

func (d WebhookData) MetadataString(key string) string {
	if d.Metadata == nil {
		return ""
	}
	v, ok := d.Metadata[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}
