package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stripelite/backend/internal/domain"
)

type InvoiceRepository struct {
	db *pgxpool.Pool
}

func NewInvoiceRepository(db *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

const invoiceColumns = "id, subscription_id, user_id, amount, status, invoice_number, due_date, paid_date, created_at, updated_at"

func (r *InvoiceRepository) FindByID(ctx context.Context, id string) (*domain.Invoice, error) {
	row := r.db.QueryRow(ctx, "SELECT "+invoiceColumns+" FROM invoices WHERE id = $1", id)
	var inv domain.Invoice
	err := row.Scan(&inv.ID, &inv.SubscriptionID, &inv.UserID, &inv.Amount, &inv.Status,
		&inv.InvoiceNumber, &inv.DueDate, &inv.PaidDate, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}
	return &inv, nil
}

// FindDetailByID returns the invoice joined with user, plan, and subscription
// context for the invoice detail view.
func (r *InvoiceRepository) FindDetailByID(ctx context.Context, id string) (*domain.InvoiceDetail, error) {
	row := r.db.QueryRow(ctx, `
		SELECT i.id, i.subscription_id, i.user_id, i.amount, i.status, i.invoice_number,
		       i.due_date, i.paid_date, i.created_at, i.updated_at,
		       sp.name, us.status, u.email, u.name
		FROM invoices i
		JOIN users u ON i.user_id = u.id
		JOIN user_subscriptions us ON i.subscription_id = us.id
		JOIN subscription_plans sp ON us.plan_id = sp.id
		WHERE i.id = $1
	`, id)
	var d domain.InvoiceDetail
	err := row.Scan(&d.ID, &d.SubscriptionID, &d.UserID, &d.Amount, &d.Status, &d.InvoiceNumber,
		&d.DueDate, &d.PaidDate, &d.CreatedAt, &d.UpdatedAt,
		&d.PlanName, &d.SubscriptionStatus, &d.UserEmail, &d.UserName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}
	return &d, nil
}

// ListByUser returns the user's invoices joined with plan and subscription
// context, newest first.
func (r *InvoiceRepository) ListByUser(ctx context.Context, userID string) ([]domain.InvoiceDetail, error) {
	rows, err := r.db.Query(ctx, `
		SELECT i.id, i.subscription_id, i.user_id, i.amount, i.status, i.invoice_number,
		       i.due_date, i.paid_date, i.created_at, i.updated_at,
		       sp.name, us.status
		FROM invoices i
		JOIN user_subscriptions us ON i.subscription_id = us.id
		JOIN subscription_plans sp ON us.plan_id = sp.id
		WHERE i.user_id = $1
		ORDER BY i.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices := []domain.InvoiceDetail{}
	for rows.Next() {
		var d domain.InvoiceDetail
		err := rows.Scan(&d.ID, &d.SubscriptionID, &d.UserID, &d.Amount, &d.Status, &d.InvoiceNumber,
			&d.DueDate, &d.PaidDate, &d.CreatedAt, &d.UpdatedAt, &d.PlanName, &d.SubscriptionStatus)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, d)
	}
	return invoices, rows.Err()
}

// ListAll returns every invoice joined with user and plan context, newest
// first. Admin listing.
func (r *InvoiceRepository) ListAll(ctx context.Context) ([]domain.InvoiceDetail, error) {
	rows, err := r.db.Query(ctx, `
		SELECT i.id, i.subscription_id, i.user_id, i.amount, i.status, i.invoice_number,
		       i.due_date, i.paid_date, i.created_at, i.updated_at,
		       sp.name, u.email, u.name
		FROM invoices i
		JOIN users u ON i.user_id = u.id
		JOIN user_subscriptions us ON i.subscription_id = us.id
		JOIN subscription_plans sp ON us.plan_id = sp.id
		ORDER BY i.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices := []domain.InvoiceDetail{}
	for rows.Next() {
		var d domain.InvoiceDetail
		err := rows.Scan(&d.ID, &d.SubscriptionID, &d.UserID, &d.Amount, &d.Status, &d.InvoiceNumber,
			&d.DueDate, &d.PaidDate, &d.CreatedAt, &d.UpdatedAt, &d.PlanName, &d.UserEmail, &d.UserName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, d)
	}
	return invoices, rows.Err()
}

// Settle moves the invoice from one of the expected statuses to the target
// status and, when txn is non-nil, appends the payment transaction — all in
// one transaction so a paid invoice cannot lack its ledger entry. It returns
// the previous status and whether the transition applied; prev is empty when
// the invoice does not exist.
func (r *InvoiceRepository) Settle(ctx context.Context, id string, from []string, to string, setPaidDate bool, txn *domain.PaymentTransaction) (string, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var prev string
	err = tx.QueryRow(ctx, "SELECT status FROM invoices WHERE id = $1 FOR UPDATE", id).Scan(&prev)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to lock invoice: %w", err)
	}

	if !slices.Contains(from, prev) {
		return prev, false, nil
	}

	if setPaidDate {
		_, err = tx.Exec(ctx, "UPDATE invoices SET status = $1, paid_date = NOW(), updated_at = NOW() WHERE id = $2", to, id)
	} else {
		_, err = tx.Exec(ctx, "UPDATE invoices SET status = $1, updated_at = NOW() WHERE id = $2", to, id)
	}
	if err != nil {
		return prev, false, fmt.Errorf("failed to update invoice status: %w", err)
	}

	if txn != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO payment_transactions (id, invoice_id, amount, payment_method, status, transaction_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, txn.ID, txn.InvoiceID, txn.Amount, txn.PaymentMethod, txn.Status, txn.TransactionID, txn.CreatedAt)
		if err != nil {
			return prev, false, fmt.Errorf("failed to insert payment transaction: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return prev, false, fmt.Errorf("failed to commit invoice settlement: %w", err)
	}
	return prev, true, nil
}

// Transactions returns the payment ledger for an invoice, oldest first.
func (r *InvoiceRepository) Transactions(ctx context.Context, invoiceID string) ([]domain.PaymentTransaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, invoice_id, amount, payment_method, status, transaction_id, created_at
		FROM payment_transactions
		WHERE invoice_id = $1
		ORDER BY created_at ASC
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txns := []domain.PaymentTransaction{}
	for rows.Next() {
		var t domain.PaymentTransaction
		err := rows.Scan(&t.ID, &t.InvoiceID, &t.Amount, &t.PaymentMethod, &t.Status, &t.TransactionID, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// RevenueTotals computes the paid, current-month, and pending sums in one
// round trip. No caching: aggregates are always fresh.
func (r *InvoiceRepository) RevenueTotals(ctx context.Context) (total, monthly, pending decimal.Decimal, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE status = 'paid'), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'paid'
				AND DATE_TRUNC('month', paid_date) = DATE_TRUNC('month', CURRENT_DATE)), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'pending'), 0)
		FROM invoices
	`).Scan(&total, &monthly, &pending)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, fmt.Errorf("failed to compute revenue totals: %w", err)
	}
	return total, monthly, pending, nil
}

// MonthlyRevenue returns per-month paid revenue for the chart, ascending.
func (r *InvoiceRepository) MonthlyRevenue(ctx context.Context) ([]domain.MonthlyRevenuePoint, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DATE_TRUNC('month', paid_date) AS month, SUM(amount) AS revenue
		FROM invoices
		WHERE status = 'paid' AND paid_date IS NOT NULL
		GROUP BY DATE_TRUNC('month', paid_date)
		ORDER BY month ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute monthly revenue: %w", err)
	}
	defer rows.Close()

	points := []domain.MonthlyRevenuePoint{}
	for rows.Next() {
		var p domain.MonthlyRevenuePoint
		if err := rows.Scan(&p.Month, &p.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan revenue point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
