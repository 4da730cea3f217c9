package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripelite/backend/internal/domain"
)

// SubscriptionStore is the persistence surface SubscriptionService needs.
// Compound mutations (create + history + invoice, transition + history) are
// atomic at the store level.
type SubscriptionStore interface {
	CreateWithInvoice(ctx context.Context, sub *domain.Subscription, hist *domain.SubscriptionHistory, inv *domain.Invoice) error
	FindByID(ctx context.Context, id string) (*domain.Subscription, error)
	HasActive(ctx context.Context, userID, planID string) (bool, error)
	Transition(ctx context.Context, id string, from []string, to, action, changedBy string, setEndDate bool) (string, bool, error)
	ListByUser(ctx context.Context, userID string) ([]domain.SubscriptionDetail, error)
	ListAll(ctx context.Context) ([]domain.SubscriptionDetail, error)
	History(ctx context.Context, subscriptionID string) ([]domain.SubscriptionHistory, error)
}

// PlanGetter is the slice of the plan catalog the subscription ledger reads.
type PlanGetter interface {
	FindByID(ctx context.Context, id string) (*domain.Plan, error)
}

// SubscriptionService owns the subscription lifecycle.
type SubscriptionService struct {
	subs  SubscriptionStore
	plans PlanGetter
}

func NewSubscriptionService(subs SubscriptionStore, plans PlanGetter) *SubscriptionService {
	return &SubscriptionService{subs: subs, plans: plans}
}

// Subscribe enrolls the user in a plan. The subscription starts active, the
// audit row and the first pending invoice are created with it, and a second
// active subscription to the same plan is rejected.
func (s *SubscriptionService) Subscribe(ctx context.Context, userID, planID string) (*domain.Subscription, error) {
	plan, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		return nil, storeErr("failed to find plan", err)
	}
	if plan == nil {
		return nil, domain.ErrNotFound("plan not found")
	}

	active, err := s.subs.HasActive(ctx, userID, planID)
	if err != nil {
		return nil, storeErr("failed to check existing subscription", err)
	}
	if active {
		return nil, domain.ErrConflict("you already have an active subscription to this plan")
	}

	now := time.Now()
	nextBilling := now.AddDate(0, 1, 0)
	if plan.BillingCycle == domain.CycleYearly {
		nextBilling = now.AddDate(1, 0, 0)
	}

	sub := &domain.Subscription{
		ID:              domain.NewID(),
		UserID:          userID,
		PlanID:          planID,
		Status:          domain.SubscriptionActive,
		StartDate:       now,
		NextBillingDate: nextBilling,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	hist := &domain.SubscriptionHistory{
		ID:             domain.NewID(),
		SubscriptionID: sub.ID,
		Action:         domain.ActionCreated,
		NewStatus:      domain.SubscriptionActive,
		ChangedBy:      userID,
		CreatedAt:      now,
	}

	inv := &domain.Invoice{
		ID:             domain.NewID(),
		SubscriptionID: sub.ID,
		UserID:         userID,
		Amount:         plan.Price,
		Status:         domain.InvoicePending,
		InvoiceNumber:  NewInvoiceNumber(),
		DueDate:        now.AddDate(0, 0, 7),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.subs.CreateWithInvoice(ctx, sub, hist, inv); err != nil {
		return nil, storeErr("failed to create subscription", err)
	}
	return sub, nil
}

// Pause moves an active subscription to paused.
func (s *SubscriptionService) Pause(ctx context.Context, actor domain.SessionUser, id string) error {
	return s.transition(ctx, actor, id,
		[]string{domain.SubscriptionActive}, domain.SubscriptionPaused, domain.ActionPaused, false)
}

// Resume moves a paused subscription back to active.
func (s *SubscriptionService) Resume(ctx context.Context, actor domain.SessionUser, id string) error {
	return s.transition(ctx, actor, id,
		[]string{domain.SubscriptionPaused}, domain.SubscriptionActive, domain.ActionResumed, false)
}

// Cancel ends an active or paused subscription. Canceled is terminal.
func (s *SubscriptionService) Cancel(ctx context.Context, actor domain.SessionUser, id string) error {
	return s.transition(ctx, actor, id,
		[]string{domain.SubscriptionActive, domain.SubscriptionPaused}, domain.SubscriptionCanceled, domain.ActionCanceled, true)
}

func (s *SubscriptionService) transition(ctx context.Context, actor domain.SessionUser, id string, from []string, to, action string, setEndDate bool) error {
	sub, err := s.subs.FindByID(ctx, id)
	if err != nil {
		return storeErr("failed to find subscription", err)
	}
	if sub == nil {
		return domain.ErrNotFound("subscription not found")
	}
	if sub.UserID != actor.ID && !actor.IsAdmin() {
		return domain.ErrForbidden("not your subscription")
	}

	prev, ok, err := s.subs.Transition(ctx, id, from, to, action, actor.ID, setEndDate)
	if err != nil {
		return storeErr("failed to update subscription", err)
	}
	if !ok {
		if prev == "" {
			return domain.ErrNotFound("subscription not found")
		}
		return domain.ErrConflict(fmt.Sprintf("subscription is %s", prev))
	}
	return nil
}

// ListForUser returns subscriptions for targetUserID, which non-admins may
// only set to themselves.
func (s *SubscriptionService) ListForUser(ctx context.Context, actor domain.SessionUser, targetUserID string) ([]domain.SubscriptionDetail, error) {
	if targetUserID == "" {
		targetUserID = actor.ID
	}
	if targetUserID != actor.ID && !actor.IsAdmin() {
		return nil, domain.ErrForbidden("admin access required")
	}

	subs, err := s.subs.ListByUser(ctx, targetUserID)
	if err != nil {
		return nil, storeErr("failed to list subscriptions", err)
	}
	return subs, nil
}

// ListAll returns every subscription with user and plan context (admin).
func (s *SubscriptionService) ListAll(ctx context.Context) ([]domain.SubscriptionDetail, error) {
	subs, err := s.subs.ListAll(ctx)
	if err != nil {
		return nil, storeErr("failed to list subscriptions", err)
	}
	return subs, nil
}

// History returns the audit trail for a subscription the actor may see.
func (s *SubscriptionService) History(ctx context.Context, actor domain.SessionUser, id string) ([]domain.SubscriptionHistory, error) {
	sub, err := s.subs.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("failed to find subscription", err)
	}
	if sub == nil {
		return nil, domain.ErrNotFound("subscription not found")
	}
	if sub.UserID != actor.ID && !actor.IsAdmin() {
		return nil, domain.ErrForbidden("not your subscription")
	}

	entries, err := s.subs.History(ctx, id)
	if err != nil {
		return nil, storeErr("failed to list history", err)
	}
	return entries, nil
}

// NewInvoiceNumber generates a unique human-readable invoice number.
func NewInvoiceNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:9])
	return fmt.Sprintf("INV-%d-%s", time.Now().UnixMilli(), suffix)
}
