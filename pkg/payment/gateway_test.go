package payment

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedGatewayCharge(t *testing.T) {
	ctx := context.Background()
	g := NewSimulatedGateway()
	amount := decimal.RequireFromString("29.99")

	t.Run("card", func(t *testing.T) {
		txn, err := g.Charge(ctx, "inv-1", amount, MethodCard)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(txn.TransactionID, "PAY-"))
		assert.True(t, txn.Amount.Equal(amount))
		assert.Equal(t, MethodCard, txn.Method)
		assert.Equal(t, StatusSuccess, txn.Status)
	})

	t.Run("manual", func(t *testing.T) {
		txn, err := g.Charge(ctx, "inv-1", amount, MethodManual)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(txn.TransactionID, "TXN-"))
		assert.Equal(t, MethodManual, txn.Method)
	})
}

func TestSimulatedGatewayRefund(t *testing.T) {
	g := NewSimulatedGateway()
	amount := decimal.RequireFromString("29.99")

	txn, err := g.Refund(context.Background(), "inv-1", amount)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(txn.TransactionID, "REFUND-"))
	assert.True(t, txn.Amount.Equal(amount.Neg()), "refund amounts are negative")
	assert.Equal(t, MethodRefund, txn.Method)
	assert.Equal(t, StatusRefunded, txn.Status)
}
