package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripelite/backend/internal/domain"
	"github.com/stripelite/backend/pkg/payment"
)

// InvoiceStore is the persistence surface InvoiceService needs. Settle is
// atomic: the status change and the transaction row commit together.
type InvoiceStore interface {
	FindByID(ctx context.Context, id string) (*domain.Invoice, error)
	FindDetailByID(ctx context.Context, id string) (*domain.InvoiceDetail, error)
	ListByUser(ctx context.Context, userID string) ([]domain.InvoiceDetail, error)
	ListAll(ctx context.Context) ([]domain.InvoiceDetail, error)
	Settle(ctx context.Context, id string, from []string, to string, setPaidDate bool, txn *domain.PaymentTransaction) (string, bool, error)
	Transactions(ctx context.Context, invoiceID string) ([]domain.PaymentTransaction, error)
	RevenueTotals(ctx context.Context) (total, monthly, pending decimal.Decimal, err error)
	MonthlyRevenue(ctx context.Context) ([]domain.MonthlyRevenuePoint, error)
}

// ActiveCounter reports the number of active subscriptions, for the metrics
// dashboard.
type ActiveCounter interface {
	CountActive(ctx context.Context) (int64, error)
}

// InvoiceService owns the invoice lifecycle and revenue aggregates.
type InvoiceService struct {
	invoices InvoiceStore
	subs     ActiveCounter
	gateway  payment.Gateway
}

func NewInvoiceService(invoices InvoiceStore, subs ActiveCounter, gateway payment.Gateway) *InvoiceService {
	return &InvoiceService{invoices: invoices, subs: subs, gateway: gateway}
}

// payable statuses for self-service pay and admin mark-paid. A failed
// invoice may be retried; paid and refunded are final.
var payableFrom = []string{domain.InvoicePending, domain.InvoiceFailed}

// Pay settles the caller's own invoice by card. The invoice must belong to
// the caller; its existence is not revealed otherwise.
func (s *InvoiceService) Pay(ctx context.Context, userID, invoiceID string) error {
	inv, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return storeErr("failed to find invoice", err)
	}
	if inv == nil || inv.UserID != userID {
		return domain.ErrNotFound("invoice not found")
	}
	if inv.Status == domain.InvoicePaid {
		return domain.ErrConflict("invoice is already paid")
	}
	if inv.Status == domain.InvoiceRefunded {
		return domain.ErrConflict("cannot pay a refunded invoice")
	}

	return s.settlePaid(ctx, inv, payment.MethodCard)
}

// MarkPaid settles an invoice as a manual admin action.
func (s *InvoiceService) MarkPaid(ctx context.Context, invoiceID string) error {
	inv, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return storeErr("failed to find invoice", err)
	}
	if inv == nil {
		return domain.ErrNotFound("invoice not found")
	}
	if inv.Status == domain.InvoicePaid {
		return domain.ErrConflict("invoice is already paid")
	}
	if inv.Status == domain.InvoiceRefunded {
		return domain.ErrConflict("cannot pay a refunded invoice")
	}

	return s.settlePaid(ctx, inv, payment.MethodManual)
}

func (s *InvoiceService) settlePaid(ctx context.Context, inv *domain.Invoice, method string) error {
	charge, err := s.gateway.Charge(ctx, inv.ID, inv.Amount, method)
	if err != nil {
		return domain.ErrInternal("payment failed", err)
	}

	prev, ok, err := s.invoices.Settle(ctx, inv.ID, payableFrom, domain.InvoicePaid, true, &domain.PaymentTransaction{
		ID:            domain.NewID(),
		InvoiceID:     inv.ID,
		Amount:        charge.Amount,
		PaymentMethod: charge.Method,
		Status:        charge.Status,
		TransactionID: charge.TransactionID,
		CreatedAt:     time.Now(),
	})
	if err != nil {
		return storeErr("failed to settle invoice", err)
	}
	if !ok {
		// Lost a race: someone settled it between our read and the lock.
		return domain.ErrConflict(fmt.Sprintf("invoice is %s", prev))
	}
	return nil
}

// MarkFailed records a failed payment attempt on a pending invoice. No
// transaction row is written.
func (s *InvoiceService) MarkFailed(ctx context.Context, invoiceID string) error {
	prev, ok, err := s.invoices.Settle(ctx, invoiceID, []string{domain.InvoicePending}, domain.InvoiceFailed, false, nil)
	if err != nil {
		return storeErr("failed to update invoice", err)
	}
	if !ok {
		if prev == "" {
			return domain.ErrNotFound("invoice not found")
		}
		return domain.ErrConflict(fmt.Sprintf("invoice is %s", prev))
	}
	return nil
}

// Refund reverses a paid invoice and writes the negative-amount transaction.
func (s *InvoiceService) Refund(ctx context.Context, invoiceID string) error {
	inv, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return storeErr("failed to find invoice", err)
	}
	if inv == nil {
		return domain.ErrNotFound("invoice not found")
	}
	if inv.Status != domain.InvoicePaid {
		return domain.ErrConflict("can only refund paid invoices")
	}

	refund, err := s.gateway.Refund(ctx, inv.ID, inv.Amount)
	if err != nil {
		return domain.ErrInternal("refund failed", err)
	}

	prev, ok, err := s.invoices.Settle(ctx, inv.ID, []string{domain.InvoicePaid}, domain.InvoiceRefunded, false, &domain.PaymentTransaction{
		ID:            domain.NewID(),
		InvoiceID:     inv.ID,
		Amount:        refund.Amount,
		PaymentMethod: refund.Method,
		Status:        refund.Status,
		TransactionID: refund.TransactionID,
		CreatedAt:     time.Now(),
	})
	if err != nil {
		return storeErr("failed to refund invoice", err)
	}
	if !ok {
		return domain.ErrConflict(fmt.Sprintf("invoice is %s", prev))
	}
	return nil
}

// InvoiceView is the invoice detail plus its payment ledger.
type InvoiceView struct {
	domain.InvoiceDetail
	Transactions []domain.PaymentTransaction `json:"transactions"`
}

// Get returns an invoice the actor may see: the owner or an admin.
func (s *InvoiceService) Get(ctx context.Context, actor domain.SessionUser, invoiceID string) (*InvoiceView, error) {
	detail, err := s.invoices.FindDetailByID(ctx, invoiceID)
	if err != nil {
		return nil, storeErr("failed to find invoice", err)
	}
	if detail == nil {
		return nil, domain.ErrNotFound("invoice not found")
	}
	if detail.UserID != actor.ID && !actor.IsAdmin() {
		return nil, domain.ErrForbidden("not your invoice")
	}

	txns, err := s.invoices.Transactions(ctx, invoiceID)
	if err != nil {
		return nil, storeErr("failed to list transactions", err)
	}
	return &InvoiceView{InvoiceDetail: *detail, Transactions: txns}, nil
}

// ListForUser returns invoices for targetUserID, which non-admins may only
// set to themselves.
func (s *InvoiceService) ListForUser(ctx context.Context, actor domain.SessionUser, targetUserID string) ([]domain.InvoiceDetail, error) {
	if targetUserID == "" {
		targetUserID = actor.ID
	}
	if targetUserID != actor.ID && !actor.IsAdmin() {
		return nil, domain.ErrForbidden("admin access required")
	}

	invoices, err := s.invoices.ListByUser(ctx, targetUserID)
	if err != nil {
		return nil, storeErr("failed to list invoices", err)
	}
	return invoices, nil
}

// ListAll returns every invoice with user and plan context (admin).
func (s *InvoiceService) ListAll(ctx context.Context) ([]domain.InvoiceDetail, error) {
	invoices, err := s.invoices.ListAll(ctx)
	if err != nil {
		return nil, storeErr("failed to list invoices", err)
	}
	return invoices, nil
}

// Metrics computes the revenue dashboard aggregates fresh per request.
func (s *InvoiceService) Metrics(ctx context.Context) (*domain.RevenueMetrics, error) {
	total, monthly, pending, err := s.invoices.RevenueTotals(ctx)
	if err != nil {
		return nil, storeErr("failed to compute revenue", err)
	}

	active, err := s.subs.CountActive(ctx)
	if err != nil {
		return nil, storeErr("failed to count subscriptions", err)
	}

	return &domain.RevenueMetrics{
		TotalRevenue:        total,
		MonthlyRevenue:      monthly,
		PendingRevenue:      pending,
		ActiveSubscriptions: active,
	}, nil
}

// MonthlyChart returns per-month paid revenue, ascending.
func (s *InvoiceService) MonthlyChart(ctx context.Context) ([]domain.MonthlyRevenuePoint, error) {
	points, err := s.invoices.MonthlyRevenue(ctx)
	if err != nil {
		return nil, storeErr("failed to compute monthly revenue", err)
	}
	return points, nil
}
