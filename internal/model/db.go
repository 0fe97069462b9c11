package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentLinkStatusActive    = "active"
	PaymentLinkStatusCompleted = "completed"

	TransactionTypePayment = "payment"

	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
	TransactionStatusCancelled = "cancelled"

	PayoutStatusPending   = "pending"
	PayoutStatusCompleted = "completed"
	PayoutStatusFailed    = "failed"

	PayoutSourceManual       = "manual"
	PayoutSourceAutoTransfer = "auto_transfer"
)

type PaymentLink struct {
	ID             string    `gorm:"primaryKey;size:64;not null" json:"id"`
	UserID         string    `gorm:"size:64;index;not null" json:"user_id"`
	Amount         int64     `gorm:"not null" json:"amount"` // minor units
	Description    string    `gorm:"size:255" json:"description"`
	Currency       string    `gorm:"size:8;not null" json:"currency"`
	Status         string    `gorm:"size:32;index;not null" json:"status"` // active, completed
	ProcessorToken string    `gorm:"size:128;uniqueIndex;not null" json:"processor_token"`
	CheckoutURL    string    `gorm:"size:512" json:"checkout_url"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Transaction struct {
	ID                 string    `gorm:"primaryKey;size:64;not null" json:"id"`
	UserID             string    `gorm:"size:64;index;not null" json:"user_id"`
	PaymentLinkID      *string   `gorm:"size:64;index" json:"payment_link_id"`
	Amount             int64     `gorm:"not null" json:"amount"` // gross, as paid by the customer
	FeeAmount          int64     `gorm:"not null" json:"fee_amount"`
	NetAmount          int64     `gorm:"not null" json:"net_amount"`
	Currency           string    `gorm:"size:8;not null" json:"currency"`
	Type               string    `gorm:"size:32;not null" json:"type"`
	Status             string    `gorm:"size:32;index;not null" json:"status"`
	ProcessorReference string    `gorm:"size:128;uniqueIndex;not null" json:"processor_reference"`
	CustomerName       string    `gorm:"size:255" json:"customer_name"`
	CustomerContact    string    `gorm:"size:255" json:"customer_contact"`
	Processed          bool      `gorm:"not null;default:false" json:"processed"`
	CreatedAt          time.Time `json:"created_at"`
}

type Payout struct {
	ID                string    `gorm:"primaryKey;size:64;not null" json:"id"`
	UserID            string    `gorm:"size:64;index;not null" json:"user_id"`
	Amount            int64     `gorm:"not null" json:"amount"`
	Currency          string    `gorm:"size:8;not null" json:"currency"`
	Status            string    `gorm:"size:32;index;not null" json:"status"` // pending, completed, failed
	Method            string    `gorm:"size:64" json:"method"`
	Source            string    `gorm:"size:32;not null" json:"source"`
	TransactionID     *string   `gorm:"size:64;index" json:"transaction_id"`
	CustomerFirstName string    `gorm:"size:128" json:"customer_first_name"`
	CustomerLastName  string    `gorm:"size:128" json:"customer_last_name"`
	CustomerPhone     string    `gorm:"size:32" json:"customer_phone"`
	CustomerEmail     string    `gorm:"size:255" json:"customer_email"`
	ProcessorPayoutID *string   `gorm:"size:128;uniqueIndex" json:"processor_payout_id"`
	FailureReason     string    `gorm:"size:255" json:"failure_reason"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (p *Payout) IsTerminal() bool {
	return p.Status == PayoutStatusCompleted || p.Status == PayoutStatusFailed
}

type Wallet struct {
	UserID    string    `gorm:"primaryKey;size:64;not null" json:"user_id"`
	Available int64     `gorm:"not null;default:0" json:"available"`
	Pending   int64     `gorm:"not null;default:0" json:"pending"`
	Validated int64     `gorm:"not null;default:0" json:"validated"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserStats struct {
	UserID                    string    `gorm:"primaryKey;size:64;not null" json:"user_id"`
	SalesTotal                int64     `gorm:"not null;default:0" json:"sales_total"`
	DailySales                int64     `gorm:"not null;default:0" json:"daily_sales"`
	MonthlySales              int64     `gorm:"not null;default:0" json:"monthly_sales"`
	TotalTransactions         int64     `gorm:"not null;default:0" json:"total_transactions"`
	DailyTransactions         int64     `gorm:"not null;default:0" json:"daily_transactions"`
	MonthlyTransactions       int64     `gorm:"not null;default:0" json:"monthly_transactions"`
	PreviousMonthSales        int64     `gorm:"not null;default:0" json:"previous_month_sales"`
	PreviousMonthTransactions int64     `gorm:"not null;default:0" json:"previous_month_transactions"`
	SalesGrowth               float64   `gorm:"not null;default:0" json:"sales_growth"`
	TotalProducts             int64     `gorm:"not null;default:0" json:"total_products"`
	VisibleProducts           int64     `gorm:"not null;default:0" json:"visible_products"`
	Balance                   int64     `gorm:"not null;default:0" json:"balance"`
	AvailableBalance          int64     `gorm:"not null;default:0" json:"available_balance"`
	PendingRequests           int64     `gorm:"not null;default:0" json:"pending_requests"`
	ValidatedRequests         int64     `gorm:"not null;default:0" json:"validated_requests"`
	LastDailyUpdate           time.Time `json:"last_daily_update"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

func (UserStats) TableName() string { return "user_stats" }

// Profile is owned by the account service; settlement only reads it.
type Profile struct {
	UserID        string              `gorm:"primaryKey;size:64;not null" json:"user_id"`
	FirstName     string              `gorm:"size:128" json:"first_name"`
	LastName      string              `gorm:"size:128" json:"last_name"`
	Email         string              `gorm:"size:255" json:"email"`
	FeePercentage decimal.NullDecimal `gorm:"type:decimal(5,2)" json:"fee_percentage"`
	AutoTransfer  bool                `gorm:"not null;default:false" json:"auto_transfer"`
	MomoProvider  string              `gorm:"size:64" json:"momo_provider"`
	MomoNumber    string              `gorm:"size:32" json:"momo_number"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

type Product struct {
	ID        string    `gorm:"primaryKey;size:64;not null" json:"id"`
	UserID    string    `gorm:"size:64;index;not null" json:"user_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Price     int64     `gorm:"not null" json:"price"`
	Currency  string    `gorm:"size:8;not null" json:"currency"`
	Visible   bool      `gorm:"not null" json:"visible"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type WebhookEvent struct {
	ID          string `gorm:"primaryKey;size:64;not null"`
	Source      string `gorm:"size:32;index;not null"` // payment, payout
	EventType   string `gorm:"size:64;index"`
	Reference   string `gorm:"size:128;index"`
	PayloadHash string `gorm:"size:64;not null"`
	Outcome     string `gorm:"size:64;not null"`
	ReceivedAt  time.Time
}

// All lists every table managed by the settlement service, in migration order.
func All() []interface{} {
	return []interface{}{
		&Profile{},
		&Product{},
		&PaymentLink{},
		&Transaction{},
		&Payout{},
		&Wallet{},
		&UserStats{},
		&WebhookEvent{},
	}
}
