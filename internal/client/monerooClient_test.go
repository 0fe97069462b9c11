package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"merchant-settlement/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMoneroo(t *testing.T, handler http.HandlerFunc) MonerooClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewMonerooClient(&config.Moneroo{
		BaseApiURL: srv.URL + "/",
		SecretKey:  "sk_test",
		Timeout:    5 * time.Second,
	})
}

func TestCreateCheckout(t *testing.T) {
	var got map[string]any
	c := newTestMoneroo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payments/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":"ok","data":{"id":"py_123","checkout_url":"https://pay.test/py_123"}}`))
	})

	resp, err := c.CreateCheckout(context.Background(), &CheckoutRequest{
		PaymentLinkID: "link-1",
		Amount:        5000,
		Currency:      "XOF",
		Description:   "order",
		Customer:      Customer{FirstName: "Ada", LastName: "K", Email: "ada@example.com"},
		ReturnURL:     "https://shop.test/payment-links/link-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "py_123", resp.Reference)
	assert.Equal(t, "https://pay.test/py_123", resp.CheckoutURL)
	assert.Equal(t, float64(5000), got["amount"])
	assert.Equal(t, "link-1", got["metadata"].(map[string]any)["payment_link_id"])
	assert.Equal(t, "ada@example.com", got["customer"].(map[string]any)["email"])
}

func TestInitiatePayout(t *testing.T) {
	var got map[string]any
	c := newTestMoneroo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payouts/initialize", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":"ok","data":{"id":"po_77"}}`))
	})

	resp, err := c.InitiatePayout(context.Background(), &PayoutRequest{
		PayoutID: "payout-1",
		Amount:   9500,
		Currency: "XOF",
		Method:   "mtn_bj",
		Phone:    "+22991000000",
	})

	require.NoError(t, err)
	assert.Equal(t, "po_77", resp.ProcessorPayoutID)
	assert.Equal(t, "mtn_bj", got["method"])
	assert.Equal(t, "+22991000000", got["recipient"].(map[string]any)["msisdn"])
	assert.Equal(t, "payout-1", got["metadata"].(map[string]any)["payout_id"])
}

func TestProcessorErrors(t *testing.T) {
	c := newTestMoneroo(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/payouts/initialize" {
			_, _ = w.Write([]byte(`{"message":"queued","data":{}}`))
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid currency"}`))
	})

	_, err := c.CreateCheckout(context.Background(), &CheckoutRequest{Amount: 100, Currency: "EUR"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")

	_, err = c.InitiatePayout(context.Background(), &PayoutRequest{Amount: 100})
	assert.ErrorContains(t, err, "missing payout id")
}

func TestDialectorForSchemes(t *testing.T) {
	for _, url := range []string{"mysql://user:pw@tcp(localhost:3306)/ledger", "postgres://u:p@localhost/ledger", "sqlite://ledger.db"} {
		_, err := dialectorFor(url)
		assert.NoError(t, err, url)
	}

	_, err := dialectorFor("ledger.db")
	assert.Error(t, err)
	_, err = dialectorFor("oracle://x")
	assert.Error(t, err)
}
