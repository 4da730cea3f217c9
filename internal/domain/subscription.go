package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subscription statuses. Canceled is terminal.
const (
	SubscriptionActive   = "active"
	SubscriptionPaused   = "paused"
	SubscriptionCanceled = "canceled"
)

// Subscription history actions.
const (
	ActionCreated  = "created"
	ActionPaused   = "paused"
	ActionResumed  = "resumed"
	ActionCanceled = "canceled"
)

// Subscription represents a user's enrollment in a plan.
type Subscription struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	PlanID          string     `json:"planId"`
	Status          string     `json:"status"`
	StartDate       time.Time  `json:"startDate"`
	EndDate         *time.Time `json:"endDate,omitempty"`
	NextBillingDate time.Time  `json:"nextBillingDate"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// SubscriptionDetail is a subscription joined with its plan, and for admin
// listings the owning user.
type SubscriptionDetail struct {
	Subscription
	PlanName     string          `json:"planName"`
	PlanPrice    decimal.Decimal `json:"planPrice"`
	BillingCycle string          `json:"billingCycle"`
	Features     []string        `json:"features,omitempty"`
	UserEmail    string          `json:"userEmail,omitempty"`
	UserName     string          `json:"userName,omitempty"`
}

// SubscriptionHistory is an append-only audit entry for a status transition.
type SubscriptionHistory struct {
	ID             string    `json:"id"`
	SubscriptionID string    `json:"subscriptionId"`
	Action         string    `json:"action"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	ChangedBy      string    `json:"changedBy"`
	CreatedAt      time.Time `json:"createdAt"`
}

// SubscribeRequest is the validated input for creating a subscription.
type SubscribeRequest struct {
	PlanID string `json:"planId" validate:"required"`
}
