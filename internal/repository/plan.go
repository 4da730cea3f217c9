package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stripelite/backend/internal/domain"
)

type PlanRepository struct {
	db *pgxpool.Pool
}

func NewPlanRepository(db *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{db: db}
}

const planColumns = "id, name, description, price, billing_cycle, features, is_active, created_at, updated_at"

// List returns plans ordered by price ascending. With activeOnly set,
// deactivated plans are excluded.
func (r *PlanRepository) List(ctx context.Context, activeOnly bool) ([]domain.Plan, error) {
	query := "SELECT " + planColumns + " FROM subscription_plans"
	if activeOnly {
		query += " WHERE is_active = TRUE"
	}
	query += " ORDER BY price ASC"

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	plans := []domain.Plan{}
	for rows.Next() {
		var p domain.Plan
		if err := scanPlan(rows, &p); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (r *PlanRepository) FindByID(ctx context.Context, id string) (*domain.Plan, error) {
	row := r.db.QueryRow(ctx, "SELECT "+planColumns+" FROM subscription_plans WHERE id = $1", id)
	var p domain.Plan
	if err := scanPlan(row, &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func scanPlan(row pgx.Row, p *domain.Plan) error {
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.BillingCycle,
		&p.Features, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		return fmt.Errorf("failed to scan plan: %w", err)
	}
	return nil
}

func (r *PlanRepository) Create(ctx context.Context, p *domain.Plan) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO subscription_plans (id, name, description, price, billing_cycle, features, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.Name, p.Description, p.Price, p.BillingCycle, p.Features, p.IsActive, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}

func (r *PlanRepository) Update(ctx context.Context, p *domain.Plan) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE subscription_plans
		SET name = $1, description = $2, price = $3, billing_cycle = $4, features = $5, updated_at = NOW()
		WHERE id = $6
	`, p.Name, p.Description, p.Price, p.BillingCycle, p.Features, p.ID)
	if err != nil {
		return false, fmt.Errorf("failed to update plan: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PlanRepository) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE subscription_plans SET is_active = $1, updated_at = NOW() WHERE id = $2
	`, active, id)
	if err != nil {
		return false, fmt.Errorf("failed to toggle plan: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PlanRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM subscription_plans WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete plan: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CountActiveSubscriptions returns the number of active subscriptions
// referencing the plan. Deletion is blocked while this is non-zero.
func (r *PlanRepository) CountActiveSubscriptions(ctx context.Context, planID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM user_subscriptions WHERE plan_id = $1 AND status = 'active'
	`, planID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active subscriptions: %w", err)
	}
	return count, nil
}
