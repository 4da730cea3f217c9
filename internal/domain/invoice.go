package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice statuses.
const (
	InvoicePending  = "pending"
	InvoicePaid     = "paid"
	InvoiceFailed   = "failed"
	InvoiceRefunded = "refunded"
)

// Invoice is a billable charge tied to a subscription. Amount is fixed at
// creation from the plan price.
type Invoice struct {
	ID             string          `json:"id"`
	SubscriptionID string          `json:"subscriptionId"`
	UserID         string          `json:"userId"`
	Amount         decimal.Decimal `json:"amount"`
	Status         string          `json:"status"`
	InvoiceNumber  string          `json:"invoiceNumber"`
	DueDate        time.Time       `json:"dueDate"`
	PaidDate       *time.Time      `json:"paidDate,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// InvoiceDetail is an invoice joined with its plan name, subscription status,
// and for admin listings the owning user.
type InvoiceDetail struct {
	Invoice
	PlanName           string `json:"planName"`
	SubscriptionStatus string `json:"subscriptionStatus,omitempty"`
	UserEmail          string `json:"userEmail,omitempty"`
	UserName           string `json:"userName,omitempty"`
}

// PaymentTransaction is an immutable ledger entry recording money movement
// against an invoice. Amount is negative for refunds.
type PaymentTransaction struct {
	ID            string          `json:"id"`
	InvoiceID     string          `json:"invoiceId"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod"`
	Status        string          `json:"status"`
	TransactionID string          `json:"transactionId"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// RevenueMetrics are the admin dashboard aggregates, computed fresh per
// request.
type RevenueMetrics struct {
	TotalRevenue        decimal.Decimal `json:"totalRevenue"`
	MonthlyRevenue      decimal.Decimal `json:"monthlyRevenue"`
	PendingRevenue      decimal.Decimal `json:"pendingRevenue"`
	ActiveSubscriptions int64           `json:"activeSubscriptions"`
}

// MonthlyRevenuePoint is one month of paid revenue for the revenue chart.
type MonthlyRevenuePoint struct {
	Month   time.Time       `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
}
