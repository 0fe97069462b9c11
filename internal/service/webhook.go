package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"merchant-settlement/internal/clock"
	"merchant-settlement/internal/config"
	"merchant-settlement/internal/metrics"
	"merchant-settlement/internal/model"
	"merchant-settlement/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	WebhookSourcePayment = "payment"
	WebhookSourcePayout  = "payout"
)

// WebhookService authenticates processor callbacks, turns them into ledger
// events and hands them to the reconciler.
type WebhookService interface {
	Verify(headers http.Header, body []byte) error
	Handle(ctx context.Context, source string, headers http.Header, body []byte) (*ApplyResult, error)
}

type webhookServiceImpl struct {
	reconciler ReconcilerService
	eventRepo  repository.WebhookEventRepository
	cfg        *config.Moneroo
	clock      clock.Clock
	metrics    *metrics.Metrics
	log        *zap.Logger
}

func NewWebhookService(
	reconciler ReconcilerService,
	eventRepo repository.WebhookEventRepository,
	cfg *config.Moneroo,
	clk clock.Clock,
	m *metrics.Metrics,
	log *zap.Logger,
) WebhookService {
	return &webhookServiceImpl{
		reconciler: reconciler,
		eventRepo:  eventRepo,
		cfg:        cfg,
		clock:      clk,
		metrics:    m,
		log:        log.Named("webhook"),
	}
}

// Verify checks the hex HMAC-SHA256 of the raw body. An empty secret rejects
// every request.
func (s *webhookServiceImpl) Verify(headers http.Header, body []byte) error {
	if s.cfg.WebhookSecret == "" {
		return fmt.Errorf("%w: webhook secret not configured", ErrInvalidSignature)
	}
	signature := strings.TrimSpace(headers.Get(s.cfg.SignatureHeader))
	signature = strings.TrimPrefix(signature, "sha256=")
	if signature == "" {
		return fmt.Errorf("%w: missing signature", ErrInvalidSignature)
	}

	given, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: signature is not hex", ErrInvalidSignature)
	}
	if !hmac.Equal(given, Sign([]byte(s.cfg.WebhookSecret), body)) {
		return ErrInvalidSignature
	}
	return nil
}

func (s *webhookServiceImpl) Handle(ctx context.Context, source string, headers http.Header, body []byte) (*ApplyResult, error) {
	if err := s.Verify(headers, body); err != nil {
		s.metrics.RecordWebhook("unknown", metrics.OutcomeUnauthorized)
		s.log.Warn("Rejected webhook", zap.String("source", source), zap.Error(err))
		return nil, err
	}

	event, err := ParseWebhook(body)
	if err != nil {
		s.metrics.RecordWebhook("unknown", metrics.OutcomeMalformed)
		s.log.Warn("Malformed webhook", zap.String("source", source), zap.Error(err))
		s.audit(ctx, source, "", "", body, metrics.OutcomeMalformed)
		return nil, err
	}
	if !acceptsEvent(source, event) {
		s.metrics.RecordWebhook(event.EventName(), metrics.OutcomeIgnored)
		s.log.Warn("Webhook event sent to the wrong endpoint",
			zap.String("source", source),
			zap.String("event", event.EventName()),
			zap.String("reference", event.Reference()))
		s.audit(ctx, source, event.EventName(), event.Reference(), body, metrics.OutcomeIgnored)
		return &ApplyResult{Event: event.EventName(), Reference: event.Reference(), Outcome: metrics.OutcomeIgnored}, nil
	}

	result, err := s.reconciler.Apply(ctx, event)
	outcome := metrics.OutcomeError
	switch {
	case err == nil:
		outcome = result.Outcome
	case errors.Is(err, ErrUnknownPaymentLink), errors.Is(err, ErrUnknownPayout):
		outcome = metrics.OutcomeUnknownReference
	}
	s.audit(ctx, source, event.EventName(), event.Reference(), body, outcome)
	return result, err
}

// acceptsEvent keeps payment events on the payment endpoint and payout events
// on the payout endpoint.
func acceptsEvent(source string, event model.LedgerEvent) bool {
	switch event.(type) {
	case model.PaymentSucceeded:
		return source == WebhookSourcePayment
	case model.PayoutSucceeded, model.PayoutFailed:
		return source == WebhookSourcePayout
	}
	return true
}

func (s *webhookServiceImpl) audit(ctx context.Context, source, eventType, reference string, body []byte, outcome string) {
	sum := sha256.Sum256(body)
	record := &model.WebhookEvent{
		ID:          uuid.NewString(),
		Source:      source,
		EventType:   eventType,
		Reference:   reference,
		PayloadHash: hex.EncodeToString(sum[:]),
		Outcome:     outcome,
		ReceivedAt:  s.clock.Now(),
	}
	if err := s.eventRepo.Record(ctx, record); err != nil {
		s.log.Error("Failed to record webhook", zap.String("reference", reference), zap.Error(err))
	}
}

// Sign returns the HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}

// ParseWebhook classifies a processor callback. Unknown event names are
// returned as model.Unrecognized rather than an error.
func ParseWebhook(body []byte) (model.LedgerEvent, error) {
	var envelope model.WebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	name := strings.TrimSpace(envelope.Event)
	if name == "" {
		return nil, fmt.Errorf("%w: missing event", ErrMalformedWebhook)
	}
	raw := bytes.TrimSpace(envelope.Data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedWebhook)
	}

	var data model.WebhookData
	if err := json.Unmarshal(raw, &data); err != nil {
		switch name {
		case model.EventPaymentSuccess, model.EventPayoutSuccess, model.EventPayoutFailed:
			return nil, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
		}
		return model.Unrecognized{Event: name}, nil
	}
	data.ID = strings.TrimSpace(data.ID)

	switch name {
	case model.EventPaymentSuccess:
		if data.ID == "" {
			return nil, fmt.Errorf("%w: missing payment id", ErrMalformedWebhook)
		}
		if data.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: negative amount", ErrMalformedWebhook)
		}
		return model.PaymentSucceeded{
			ProcessorReference: data.ID,
			PaymentLinkID:      data.MetadataString("payment_link_id"),
			Amount:             data.Amount.Round(0).IntPart(),
			Currency:           strings.ToUpper(strings.TrimSpace(data.Currency)),
			Customer: model.Customer{
				FirstName: data.Customer.FirstName,
				LastName:  data.Customer.LastName,
				Phone:     data.Customer.Phone,
				Email:     data.Customer.Email,
			},
		}, nil
	case model.EventPayoutSuccess, model.EventPayoutFailed:
		payoutID := data.MetadataString("payout_id")
		if data.ID == "" && payoutID == "" {
			return nil, fmt.Errorf("%w: missing payout id", ErrMalformedWebhook)
		}
		if name == model.EventPayoutSuccess {
			return model.PayoutSucceeded{ProcessorPayoutID: data.ID, PayoutID: payoutID}, nil
		}
		reason := strings.TrimSpace(data.Reason)
		if reason == "" {
			reason = "processor_reported_failure"
		}
		return model.PayoutFailed{ProcessorPayoutID: data.ID, PayoutID: payoutID, Reason: reason}, nil
	}
	return model.Unrecognized{Event: name, ID: data.ID}, nil
}
