package common

import (
	"testing"

	"brpay/src/types"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(types.TRANSACTION_PENDING, types.TRANSACTION_PAID))
	assert.True(t, CanTransition(types.TRANSACTION_PENDING, types.TRANSACTION_AUTHORIZED))
	assert.True(t, CanTransition(types.TRANSACTION_PENDING, types.TRANSACTION_EXPIRED))
	assert.True(t, CanTransition(types.TRANSACTION_AUTHORIZED, types.TRANSACTION_PAID))
	assert.True(t, CanTransition(types.TRANSACTION_AUTHORIZED, types.TRANSACTION_CANCELED))
	assert.True(t, CanTransition(types.TRANSACTION_PAID, types.TRANSACTION_REFUNDED))

	assert.False(t, CanTransition(types.TRANSACTION_PAID, types.TRANSACTION_AUTHORIZED))
	assert.False(t, CanTransition(types.TRANSACTION_REFUNDED, types.TRANSACTION_PAID))
	assert.False(t, CanTransition(types.TRANSACTION_CANCELED, types.TRANSACTION_PAID))
	assert.False(t, CanTransition(types.TRANSACTION_EXPIRED, types.TRANSACTION_PENDING))
	assert.False(t, CanTransition(types.TRANSACTION_FAILED, types.TRANSACTION_PAID))
}

// webhook re-delivery re-applies the same value
func TestCanTransitionSameStatus(t *testing.T) {
	for _, s := range []types.TransactionStatus{
		types.TRANSACTION_PENDING, types.TRANSACTION_PAID, types.TRANSACTION_REFUNDED,
	} {
		assert.True(t, CanTransition(s, s))
	}
}

func TestNormalizeAmount(t *testing.T) {
	cents, err := NormalizeAmount(0, 1234)
	assert.NoError(t, err)
	assert.Equal(t, int64(1234), cents)

	cents, err = NormalizeAmount(12.34, 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(1234), cents)

	// amount_cents is authoritative when both are present
	cents, err = NormalizeAmount(99.99, 500)
	assert.NoError(t, err)
	assert.Equal(t, int64(500), cents)

	_, err = NormalizeAmount(0, 0)
	assert.Error(t, err)

	_, err = NormalizeAmount(0.001, 0)
	assert.Error(t, err)
}

func TestCardSummaryKeepsLast4Only(t *testing.T) {
	summary := cardSummary(&types.CardRequestBody{
		Number:   "4111111111111111",
		Holder:   "J SILVA",
		ExpMonth: "12",
		ExpYear:  "2030",
		CVV:      "123",
	})
	assert.Equal(t, "1111", summary["last4"])
	assert.Equal(t, "12", summary["exp_month"])
	assert.Equal(t, "2030", summary["exp_year"])
	_, hasCVV := summary["cvv"]
	assert.False(t, hasCVV)
	_, hasNumber := summary["number"]
	assert.False(t, hasNumber)

	assert.Nil(t, cardSummary(nil))
}

func TestProviderHint(t *testing.T) {
	assert.Equal(t, "stripe", providerHint(&types.CreatePaymentRequestBody{Provider: "stripe"}))
	assert.Equal(t, "mock", providerHint(&types.CreatePaymentRequestBody{
		Metadata: types.JSONB{"provider": "mock"},
	}))
	assert.Equal(t, "", providerHint(&types.CreatePaymentRequestBody{}))
}
