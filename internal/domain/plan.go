package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Billing cycles.
const (
	CycleMonthly = "monthly"
	CycleYearly  = "yearly"
)

// Plan represents a purchasable subscription tier.
type Plan struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	BillingCycle string          `json:"billingCycle"`
	Features     []string        `json:"features"`
	IsActive     bool            `json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// PlanRequest is the validated input for creating or updating a plan.
// Features is a newline-delimited block; blank lines are dropped.
type PlanRequest struct {
	Name         string          `json:"name" validate:"required"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	BillingCycle string          `json:"billingCycle" validate:"required,oneof=monthly yearly"`
	Features     string          `json:"features"`
}

// TogglePlanRequest is the input for activating or deactivating a plan.
type TogglePlanRequest struct {
	IsActive bool `json:"isActive"`
}
