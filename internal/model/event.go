package model

import "strings"

const (
	EventPaymentSuccess = "payment.success"
	EventPayoutSuccess  = "payout.success"
	EventPayoutFailed   = "payout.failed"
)

// LedgerEvent is a classified processor callback. The concrete types are
// PaymentSucceeded, PayoutSucceeded, PayoutFailed and Unrecognized.
type LedgerEvent interface {
	EventName() string
	Reference() string
	ledgerEvent()
}

type Customer struct {
	FirstName string
	LastName  string
	Phone     string
	Email     string
}

func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Contact prefers the phone number, mobile money being the payment rail.
func (c Customer) Contact() string {
	if c.Phone != "" {
		return c.Phone
	}
	return c.Email
}

type PaymentSucceeded struct {
	ProcessorReference string
	PaymentLinkID      string // optional hint from checkout metadata
	Amount             int64  // 0 when the processor omitted it
	Currency           string
	Customer           Customer
}

type PayoutSucceeded struct {
	ProcessorPayoutID string
	PayoutID          string // optional hint from payout metadata
}

type PayoutFailed struct {
	ProcessorPayoutID string
	PayoutID          string
	Reason            string
}

type Unrecognized struct {
	Event string
	ID    string
}

func (PaymentSucceeded) EventName() string { return EventPaymentSuccess }
func (PayoutSucceeded) EventName() string  { return EventPayoutSuccess }
func (PayoutFailed) EventName() string     { return EventPayoutFailed }
func (e Unrecognized) EventName() string   { return e.Event }

func (e PaymentSucceeded) Reference() string { return e.ProcessorReference }
func (e PayoutSucceeded) Reference() string  { return e.ProcessorPayoutID }
func (e PayoutFailed) Reference() string     { return e.ProcessorPayoutID }
func (e Unrecognized) Reference() string     { return e.ID }

func (PaymentSucceeded) ledgerEvent() {}
func (PayoutSucceeded) ledgerEvent()  {}
func (PayoutFailed) ledgerEvent()     {}
func (Unrecognized) ledgerEvent()     {}
