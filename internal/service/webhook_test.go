package service

import (
	"context"
	"encoding/hex"
	"net/http"
	"testing"

	"merchant-settlement/internal/metrics"
	"merchant-settlement/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedHeaders(body []byte) http.Header {
	h := http.Header{}
	h.Set("X-Moneroo-Signature", hex.EncodeToString(Sign([]byte(testWebhookSecret), body)))
	return h
}

func TestParseWebhookPaymentSuccess(t *testing.T) {
	body := []byte(`{
		"event": "payment.success",
		"data": {
			"id": "py_42",
			"status": "success",
			"amount": 10000,
			"currency": "xof",
			"customer": {"first_name": "Ada", "last_name": "K", "email": "ada@example.com"},
			"metadata": {"payment_link_id": "link-1"}
		}
	}`)

	event, err := ParseWebhook(body)

	require.NoError(t, err)
	payment, ok := event.(model.PaymentSucceeded)
	require.True(t, ok, "got %T", event)
	assert.Equal(t, "py_42", payment.ProcessorReference)
	assert.Equal(t, "link-1", payment.PaymentLinkID)
	assert.Equal(t, int64(10000), payment.Amount)
	assert.Equal(t, "XOF", payment.Currency)
	assert.Equal(t, "ada@example.com", payment.Customer.Contact())
}

func TestParseWebhookPayoutEvents(t *testing.T) {
	event, err := ParseWebhook([]byte(`{"event":"payout.failed","data":{"id":"po_9","failure_reason":"wrong_number","metadata":{"payout_id":"p-1"}}}`))
	require.NoError(t, err)
	assert.Equal(t, model.PayoutFailed{ProcessorPayoutID: "po_9", PayoutID: "p-1", Reason: "wrong_number"}, event)

	event, err = ParseWebhook([]byte(`{"event":"payout.success","data":{"metadata":{"payout_id":"p-2"}}}`))
	require.NoError(t, err)
	assert.Equal(t, model.PayoutSucceeded{PayoutID: "p-2"}, event)
}

func TestParseWebhookRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":        `{"event":`,
		"missing event":   `{"data":{"id":"py_1"}}`,
		"missing data":    `{"event":"payment.success"}`,
		"null data":       `{"event":"payment.success","data":null}`,
		"missing id":      `{"event":"payment.success","data":{"amount":100}}`,
		"data not object": `{"event":"payout.success","data":"po_1"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseWebhook([]byte(body))
			assert.ErrorIs(t, err, ErrMalformedWebhook)
		})
	}
}

func TestParseWebhookUnrecognized(t *testing.T) {
	event, err := ParseWebhook([]byte(`{"event":"payment.initiated","data":{"id":"py_7"}}`))

	require.NoError(t, err)
	assert.Equal(t, model.Unrecognized{Event: "payment.initiated", ID: "py_7"}, event)
}

func TestHandleRejectsBadSignature(t *testing.T) {
	env := newTestEnv(t)
	link := env.createLink(t, testSeller, 10000)
	body := []byte(`{"event":"payment.success","data":{"id":"` + link.ProcessorToken + `","amount":10000}}`)

	for _, sig := range []string{"", "zz", hex.EncodeToString(Sign([]byte("other"), body))} {
		h := http.Header{}
		h.Set("X-Moneroo-Signature", sig)
		_, err := env.webhooks.Handle(context.Background(), WebhookSourcePayment, h, body)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	}

	assert.Equal(t, int64(0), env.count(t, &model.Transaction{}))
	assert.Equal(t, int64(0), env.count(t, &model.WebhookEvent{}))
}

func TestHandleAppliesAndAuditsPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	link := env.createLink(t, testSeller, 10000)
	body := []byte(`{"event":"payment.success","data":{"id":"` + link.ProcessorToken + `","amount":10000,"currency":"XOF"}}`)

	first, err := env.webhooks.Handle(ctx, WebhookSourcePayment, signedHeaders(body), body)
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeApplied, first.Outcome)

	second, err := env.webhooks.Handle(ctx, WebhookSourcePayment, signedHeaders(body), body)
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeDuplicate, second.Outcome)

	assert.Equal(t, int64(9500), env.wallet(t, testSeller).Available)
	audited, err := env.eventRepo.CountByReference(ctx, link.ProcessorToken)
	require.NoError(t, err)
	assert.Equal(t, int64(2), audited)
}

func TestHandleUnknownReference(t *testing.T) {
	env := newTestEnv(t)
	body := []byte(`{"event":"payment.success","data":{"id":"py_ghost","amount":10000}}`)

	_, err := env.webhooks.Handle(context.Background(), WebhookSourcePayment, signedHeaders(body), body)

	assert.ErrorIs(t, err, ErrUnknownPaymentLink)
}

func TestHandleIgnoresEventOnWrongEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	link := env.createLink(t, testSeller, 10000)
	payment := []byte(`{"event":"payment.success","data":{"id":"` + link.ProcessorToken + `","amount":10000}}`)
	payout := []byte(`{"event":"payout.success","data":{"id":"po_1"}}`)

	result, err := env.webhooks.Handle(ctx, WebhookSourcePayout, signedHeaders(payment), payment)
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeIgnored, result.Outcome)
	assert.Equal(t, link.ProcessorToken, result.Reference)

	result, err = env.webhooks.Handle(ctx, WebhookSourcePayment, signedHeaders(payout), payout)
	require.NoError(t, err)
	assert.Equal(t, metrics.OutcomeIgnored, result.Outcome)

	assert.Equal(t, int64(0), env.count(t, &model.Transaction{}))
	assert.Equal(t, int64(0), env.wallet(t, testSeller).Available)
	assert.Equal(t, int64(2), env.count(t, &model.WebhookEvent{}))
}

func TestHandleMalformedSignedBody(t *testing.T) {
	env := newTestEnv(t)
	body := []byte(`{"data":{}}`)

	_, err := env.webhooks.Handle(context.Background(), WebhookSourcePayment, signedHeaders(body), body)

	assert.ErrorIs(t, err, ErrMalformedWebhook)
	assert.Equal(t, int64(1), env.count(t, &model.WebhookEvent{}))
}

func TestVerifyAcceptsPrefixedSignature(t *testing.T) {
	env := newTestEnv(t)
	body := []byte(`{"event":"ping","data":{}}`)
	h := http.Header{}
	h.Set("X-Moneroo-Signature", "sha256="+hex.EncodeToString(Sign([]byte(testWebhookSecret), body)))

	assert.NoError(t, env.webhooks.Verify(h, body))
}
