package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stripelite/backend/internal/domain"
)

type SubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = "id, user_id, plan_id, status, start_date, end_date, next_billing_date, created_at, updated_at"

// CreateWithInvoice inserts the subscription, its created-history row, and the
// first invoice as a single transaction, so a crash cannot leave a
// subscription without its invoice or audit trail.
func (r *SubscriptionRepository) CreateWithInvoice(ctx context.Context, sub *domain.Subscription, hist *domain.SubscriptionHistory, inv *domain.Invoice) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO user_subscriptions (id, user_id, plan_id, status, start_date, end_date, next_billing_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, sub.ID, sub.UserID, sub.PlanID, sub.Status, sub.StartDate, sub.EndDate, sub.NextBillingDate, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	if err := insertHistory(ctx, tx, hist); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO invoices (id, subscription_id, user_id, amount, status, invoice_number, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, inv.ID, inv.SubscriptionID, inv.UserID, inv.Amount, inv.Status, inv.InvoiceNumber, inv.DueDate, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit subscription: %w", err)
	}
	return nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, hist *domain.SubscriptionHistory) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO subscription_history (id, subscription_id, action, previous_status, new_status, changed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, hist.ID, hist.SubscriptionID, hist.Action, hist.PreviousStatus, hist.NewStatus, hist.ChangedBy, hist.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert history: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) FindByID(ctx context.Context, id string) (*domain.Subscription, error) {
	row := r.db.QueryRow(ctx, "SELECT "+subscriptionColumns+" FROM user_subscriptions WHERE id = $1", id)
	var s domain.Subscription
	err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.Status, &s.StartDate, &s.EndDate,
		&s.NextBillingDate, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return &s, nil
}

// HasActive reports whether the user holds an active subscription to the plan.
func (r *SubscriptionRepository) HasActive(ctx context.Context, userID, planID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM user_subscriptions
			WHERE user_id = $1 AND plan_id = $2 AND status = 'active'
		)
	`, userID, planID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check active subscription: %w", err)
	}
	return exists, nil
}

// Transition moves the subscription from one of the expected statuses to the
// target status and appends the audit row, all in one transaction. The row
// lock serializes concurrent transitions. It returns the previous status and
// whether the transition applied; prev is empty when the row does not exist.
func (r *SubscriptionRepository) Transition(ctx context.Context, id string, from []string, to, action, changedBy string, setEndDate bool) (string, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var prev string
	err = tx.QueryRow(ctx, "SELECT status FROM user_subscriptions WHERE id = $1 FOR UPDATE", id).Scan(&prev)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to lock subscription: %w", err)
	}

	if !slices.Contains(from, prev) {
		return prev, false, nil
	}

	if setEndDate {
		_, err = tx.Exec(ctx, `
			UPDATE user_subscriptions SET status = $1, end_date = NOW(), updated_at = NOW() WHERE id = $2
		`, to, id)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE user_subscriptions SET status = $1, updated_at = NOW() WHERE id = $2
		`, to, id)
	}
	if err != nil {
		return prev, false, fmt.Errorf("failed to update subscription status: %w", err)
	}

	hist := &domain.SubscriptionHistory{
		ID:             newID(),
		SubscriptionID: id,
		Action:         action,
		PreviousStatus: prev,
		NewStatus:      to,
		ChangedBy:      changedBy,
		CreatedAt:      time.Now(),
	}
	if err := insertHistory(ctx, tx, hist); err != nil {
		return prev, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return prev, false, fmt.Errorf("failed to commit transition: %w", err)
	}
	return prev, true, nil
}

// ListByUser returns the user's subscriptions joined with plan details,
// newest first.
func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID string) ([]domain.SubscriptionDetail, error) {
	rows, err := r.db.Query(ctx, `
		SELECT us.id, us.user_id, us.plan_id, us.status, us.start_date, us.end_date,
		       us.next_billing_date, us.created_at, us.updated_at,
		       sp.name, sp.price, sp.billing_cycle, sp.features
		FROM user_subscriptions us
		JOIN subscription_plans sp ON us.plan_id = sp.id
		WHERE us.user_id = $1
		ORDER BY us.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []domain.SubscriptionDetail{}
	for rows.Next() {
		var d domain.SubscriptionDetail
		err := rows.Scan(&d.ID, &d.UserID, &d.PlanID, &d.Status, &d.StartDate, &d.EndDate,
			&d.NextBillingDate, &d.CreatedAt, &d.UpdatedAt,
			&d.PlanName, &d.PlanPrice, &d.BillingCycle, &d.Features)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, d)
	}
	return subs, rows.Err()
}

// ListAll returns every subscription joined with user and plan details,
// newest first. Admin listing.
func (r *SubscriptionRepository) ListAll(ctx context.Context) ([]domain.SubscriptionDetail, error) {
	rows, err := r.db.Query(ctx, `
		SELECT us.id, us.user_id, us.plan_id, us.status, us.start_date, us.end_date,
		       us.next_billing_date, us.created_at, us.updated_at,
		       sp.name, sp.price, sp.billing_cycle, u.email, u.name
		FROM user_subscriptions us
		JOIN users u ON us.user_id = u.id
		JOIN subscription_plans sp ON us.plan_id = sp.id
		ORDER BY us.created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []domain.SubscriptionDetail{}
	for rows.Next() {
		var d domain.SubscriptionDetail
		err := rows.Scan(&d.ID, &d.UserID, &d.PlanID, &d.Status, &d.StartDate, &d.EndDate,
			&d.NextBillingDate, &d.CreatedAt, &d.UpdatedAt,
			&d.PlanName, &d.PlanPrice, &d.BillingCycle, &d.UserEmail, &d.UserName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, d)
	}
	return subs, rows.Err()
}

// History returns the audit trail for a subscription, newest first.
func (r *SubscriptionRepository) History(ctx context.Context, subscriptionID string) ([]domain.SubscriptionHistory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, subscription_id, action, previous_status, new_status, changed_by, created_at
		FROM subscription_history
		WHERE subscription_id = $1
		ORDER BY created_at DESC
	`, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	entries := []domain.SubscriptionHistory{}
	for rows.Next() {
		var h domain.SubscriptionHistory
		err := rows.Scan(&h.ID, &h.SubscriptionID, &h.Action, &h.PreviousStatus, &h.NewStatus, &h.ChangedBy, &h.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}

// CountActive returns the number of active subscriptions across all users.
func (r *SubscriptionRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM user_subscriptions WHERE status = 'active'").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active subscriptions: %w", err)
	}
	return count, nil
}
