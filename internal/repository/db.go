package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// NewPool creates a new PostgreSQL connection pool with the decimal codec
// registered, so NUMERIC columns scan directly into decimal.Decimal.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// SchemaMissing reports whether err is an undefined-table error, meaning the
// schema bootstrap has not been run yet.
func SchemaMissing(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}

// Bootstrap creates all tables and indexes if absent and seeds the sample
// plans when the plan table is empty. Safe to run repeatedly.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool) error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			name          TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'user',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

		CREATE TABLE IF NOT EXISTS subscription_plans (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			description   TEXT NOT NULL DEFAULT '',
			price         NUMERIC(10,2) NOT NULL CHECK (price > 0),
			billing_cycle TEXT NOT NULL CHECK (billing_cycle IN ('monthly', 'yearly')),
			features      TEXT[] NOT NULL DEFAULT '{}',
			is_active     BOOLEAN NOT NULL DEFAULT TRUE,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS user_subscriptions (
			id                TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			plan_id           TEXT NOT NULL REFERENCES subscription_plans(id) ON DELETE RESTRICT,
			status            TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'paused', 'canceled')),
			start_date        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			end_date          TIMESTAMPTZ,
			next_billing_date TIMESTAMPTZ NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_user_subscriptions_user_id ON user_subscriptions(user_id);
		CREATE INDEX IF NOT EXISTS idx_user_subscriptions_status ON user_subscriptions(status);

		CREATE TABLE IF NOT EXISTS subscription_history (
			id              TEXT PRIMARY KEY,
			subscription_id TEXT NOT NULL REFERENCES user_subscriptions(id) ON DELETE CASCADE,
			action          TEXT NOT NULL,
			previous_status TEXT NOT NULL DEFAULT '',
			new_status      TEXT NOT NULL,
			changed_by      TEXT NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_subscription_history_subscription_id ON subscription_history(subscription_id);

		CREATE TABLE IF NOT EXISTS invoices (
			id              TEXT PRIMARY KEY,
			subscription_id TEXT NOT NULL REFERENCES user_subscriptions(id) ON DELETE CASCADE,
			user_id         TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			amount          NUMERIC(10,2) NOT NULL,
			status          TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'paid', 'failed', 'refunded')),
			invoice_number  TEXT NOT NULL UNIQUE,
			due_date        TIMESTAMPTZ NOT NULL,
			paid_date       TIMESTAMPTZ,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_invoices_user_id ON invoices(user_id);
		CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices(status);

		CREATE TABLE IF NOT EXISTS payment_transactions (
			id             TEXT PRIMARY KEY,
			invoice_id     TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
			amount         NUMERIC(10,2) NOT NULL,
			payment_method TEXT NOT NULL,
			status         TEXT NOT NULL,
			transaction_id TEXT NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_payment_transactions_invoice_id ON payment_transactions(invoice_id);
	`
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return seedPlans(ctx, pool)
}

func newID() string {
	return uuid.New().String()
}

type seedPlan struct {
	name        string
	description string
	price       string
	cycle       string
	features    []string
}

func seedPlans(ctx context.Context, pool *pgxpool.Pool) error {
	var count int64
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM subscription_plans").Scan(&count); err != nil {
		return fmt.Errorf("failed to count plans: %w", err)
	}
	if count > 0 {
		return nil
	}

	seeds := []seedPlan{
		{"Basic", "Perfect for individuals getting started", "9.99", "monthly",
			[]string{"5 Projects", "10GB Storage", "Basic Support", "API Access"}},
		{"Basic", "Perfect for individuals getting started (Annual)", "99.99", "yearly",
			[]string{"5 Projects", "10GB Storage", "Basic Support", "API Access", "2 Months Free"}},
		{"Pro", "For professionals and small teams", "29.99", "monthly",
			[]string{"Unlimited Projects", "100GB Storage", "Priority Support", "Advanced API", "Team Collaboration"}},
		{"Pro", "For professionals and small teams (Annual)", "299.99", "yearly",
			[]string{"Unlimited Projects", "100GB Storage", "Priority Support", "Advanced API", "Team Collaboration", "2 Months Free"}},
		{"Enterprise", "For large organizations", "99.99", "monthly",
			[]string{"Everything in Pro", "Unlimited Storage", "24/7 Support", "Custom Integrations", "SLA Guarantee", "Dedicated Account Manager"}},
		{"Enterprise", "For large organizations (Annual)", "999.99", "yearly",
			[]string{"Everything in Pro", "Unlimited Storage", "24/7 Support", "Custom Integrations", "SLA Guarantee", "Dedicated Account Manager", "2 Months Free"}},
	}

	for _, s := range seeds {
		price, err := decimal.NewFromString(s.price)
		if err != nil {
			return fmt.Errorf("invalid seed price %q: %w", s.price, err)
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO subscription_plans (id, name, description, price, billing_cycle, features)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, newID(), s.name, s.description, price, s.cycle, s.features)
		if err != nil {
			return fmt.Errorf("failed to seed plan %q: %w", s.name, err)
		}
	}
	return nil
}
