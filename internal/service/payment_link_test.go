package service

import (
	"context"
	"errors"
	"testing"

	"merchant-settlement/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePaymentLink(t *testing.T) {
	env := newTestEnv(t)

	link, err := env.links.Create(context.Background(), &CreatePaymentLinkInput{
		UserID:      testSeller,
		Amount:      2500,
		Currency:    "xof",
		Description: "Basket",
	})

	require.NoError(t, err)
	assert.Equal(t, model.PaymentLinkStatusActive, link.Status)
	assert.Equal(t, "XOF", link.Currency)
	assert.Equal(t, "py_1", link.ProcessorToken)
	assert.Equal(t, "https://checkout.test/py_1", link.CheckoutURL)

	require.Len(t, env.processor.checkouts, 1)
	req := env.processor.checkouts[0]
	assert.Equal(t, link.ID, req.PaymentLinkID)
	assert.Equal(t, "https://shop.test/payment-links/"+link.ID, req.ReturnURL)

	// Issuing a link never touches balances.
	_, err = env.walletRepo.Get(context.Background(), testSeller)
	assert.Error(t, err)
}

func TestCreatePaymentLinkBelowMinimum(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.links.Create(context.Background(), &CreatePaymentLinkInput{UserID: testSeller, Amount: 199})

	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Empty(t, env.processor.checkouts)
}

func TestCreatePaymentLinkProcessorFailurePersistsNothing(t *testing.T) {
	env := newTestEnv(t)
	env.processor.checkoutErr = errors.New("503 service unavailable")

	_, err := env.links.Create(context.Background(), &CreatePaymentLinkInput{UserID: testSeller, Amount: 1000})

	assert.ErrorIs(t, err, ErrProcessorUnavailable)
	assert.Equal(t, int64(0), env.count(t, &model.PaymentLink{}))
}
