// Package payment abstracts the payment processor. Transactions are simulated:
// no money moves, but every charge and refund yields a ledger-ready record.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods recorded on transactions.
const (
	MethodCard   = "card"   // self-service payment
	MethodManual = "manual" // admin mark-paid
	MethodRefund = "refund"
)

// Transaction statuses.
const (
	StatusSuccess  = "success"
	StatusRefunded = "refunded"
)

// Transaction is the gateway's record of a completed charge or refund.
type Transaction struct {
	TransactionID string
	Amount        decimal.Decimal
	Method        string
	Status        string
}

// Gateway defines the interface for payment providers.
type Gateway interface {
	// Charge collects the invoice amount and returns the settled transaction.
	Charge(ctx context.Context, invoiceID string, amount decimal.Decimal, method string) (*Transaction, error)
	// Refund returns the invoice amount; the transaction amount is negative.
	Refund(ctx context.Context, invoiceID string, amount decimal.Decimal) (*Transaction, error)
}

// SimulatedGateway approves every charge and refund. It stands in for a real
// processor integration.
type SimulatedGateway struct{}

func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{}
}

func (g *SimulatedGateway) Charge(ctx context.Context, invoiceID string, amount decimal.Decimal, method string) (*Transaction, error) {
	prefix := "PAY"
	if method == MethodManual {
		prefix = "TXN"
	}
	return &Transaction{
		TransactionID: transactionID(prefix),
		Amount:        amount,
		Method:        method,
		Status:        StatusSuccess,
	}, nil
}

func (g *SimulatedGateway) Refund(ctx context.Context, invoiceID string, amount decimal.Decimal) (*Transaction, error) {
	return &Transaction{
		TransactionID: transactionID("REFUND"),
		Amount:        amount.Neg(),
		Method:        MethodRefund,
		Status:        StatusRefunded,
	}, nil
}

func transactionID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixMilli())
}
