package service

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripelite/backend/internal/domain"
)

type fakeSubStore struct {
	subs     map[string]*domain.Subscription
	history  map[string][]domain.SubscriptionHistory
	invoices []*domain.Invoice
}

func newFakeSubStore() *fakeSubStore {
	return &fakeSubStore{
		subs:    make(map[string]*domain.Subscription),
		history: make(map[string][]domain.SubscriptionHistory),
	}
}

func (s *fakeSubStore) CreateWithInvoice(ctx context.Context, sub *domain.Subscription, hist *domain.SubscriptionHistory, inv *domain.Invoice) error {
	s.subs[sub.ID] = sub
	s.history[sub.ID] = append(s.history[sub.ID], *hist)
	s.invoices = append(s.invoices, inv)
	return nil
}

func (s *fakeSubStore) FindByID(ctx context.Context, id string) (*domain.Subscription, error) {
	return s.subs[id], nil
}

func (s *fakeSubStore) HasActive(ctx context.Context, userID, planID string) (bool, error) {
	for _, sub := range s.subs {
		if sub.UserID == userID && sub.PlanID == planID && sub.Status == domain.SubscriptionActive {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeSubStore) Transition(ctx context.Context, id string, from []string, to, action, changedBy string, setEndDate bool) (string, bool, error) {
	sub, ok := s.subs[id]
	if !ok {
		return "", false, nil
	}
	prev := sub.Status
	if !slices.Contains(from, prev) {
		return prev, false, nil
	}
	sub.Status = to
	sub.UpdatedAt = time.Now()
	if setEndDate {
		now := time.Now()
		sub.EndDate = &now
	}
	s.history[id] = append(s.history[id], domain.SubscriptionHistory{
		ID:             domain.NewID(),
		SubscriptionID: id,
		Action:         action,
		PreviousStatus: prev,
		NewStatus:      to,
		ChangedBy:      changedBy,
		CreatedAt:      time.Now(),
	})
	return prev, true, nil
}

func (s *fakeSubStore) ListByUser(ctx context.Context, userID string) ([]domain.SubscriptionDetail, error) {
	out := []domain.SubscriptionDetail{}
	for _, sub := range s.subs {
		if sub.UserID == userID {
			out = append(out, domain.SubscriptionDetail{Subscription: *sub})
		}
	}
	return out, nil
}

func (s *fakeSubStore) ListAll(ctx context.Context) ([]domain.SubscriptionDetail, error) {
	out := []domain.SubscriptionDetail{}
	for _, sub := range s.subs {
		out = append(out, domain.SubscriptionDetail{Subscription: *sub})
	}
	return out, nil
}

func (s *fakeSubStore) History(ctx context.Context, subscriptionID string) ([]domain.SubscriptionHistory, error) {
	return s.history[subscriptionID], nil
}

func member(id string) domain.SessionUser {
	return domain.SessionUser{ID: id, Role: domain.RoleUser}
}

func admin() domain.SessionUser {
	return domain.SessionUser{ID: "admin-1", Role: domain.RoleAdmin}
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("creates subscription, audit entry, and pending invoice", func(t *testing.T) {
		plans := newFakePlanStore()
		plan := plans.add("Pro", "29.99", domain.CycleMonthly, true)
		store := newFakeSubStore()
		svc := NewSubscriptionService(store, plans)

		sub, err := svc.Subscribe(ctx, "user-1", plan.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionActive, sub.Status)
		assert.WithinDuration(t, time.Now().AddDate(0, 1, 0), sub.NextBillingDate, time.Minute)

		hist := store.history[sub.ID]
		require.Len(t, hist, 1)
		assert.Equal(t, domain.ActionCreated, hist[0].Action)
		assert.Equal(t, "user-1", hist[0].ChangedBy)

		require.Len(t, store.invoices, 1)
		inv := store.invoices[0]
		assert.Equal(t, domain.InvoicePending, inv.Status)
		assert.True(t, inv.Amount.Equal(plan.Price), "invoice amount must match plan price")
		assert.WithinDuration(t, time.Now().AddDate(0, 0, 7), inv.DueDate, time.Minute)
		assert.True(t, strings.HasPrefix(inv.InvoiceNumber, "INV-"))
	})

	t.Run("yearly plan bills a year out", func(t *testing.T) {
		plans := newFakePlanStore()
		plan := plans.add("Pro Annual", "299.99", domain.CycleYearly, true)
		svc := NewSubscriptionService(newFakeSubStore(), plans)

		sub, err := svc.Subscribe(ctx, "user-1", plan.ID)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().AddDate(1, 0, 0), sub.NextBillingDate, time.Minute)
	})

	t.Run("unknown plan", func(t *testing.T) {
		svc := NewSubscriptionService(newFakeSubStore(), newFakePlanStore())
		_, err := svc.Subscribe(ctx, "user-1", "no-such-plan")
		requireAppError(t, err, http.StatusNotFound)
	})

	t.Run("duplicate active subscription to the same plan", func(t *testing.T) {
		plans := newFakePlanStore()
		plan := plans.add("Pro", "29.99", domain.CycleMonthly, true)
		store := newFakeSubStore()
		svc := NewSubscriptionService(store, plans)

		_, err := svc.Subscribe(ctx, "user-1", plan.ID)
		require.NoError(t, err)

		_, err = svc.Subscribe(ctx, "user-1", plan.ID)
		requireAppError(t, err, http.StatusConflict)
		assert.Len(t, store.subs, 1, "conflict must not write a second subscription")
		assert.Len(t, store.invoices, 1)
	})

	t.Run("canceled subscription does not block re-subscribing", func(t *testing.T) {
		plans := newFakePlanStore()
		plan := plans.add("Pro", "29.99", domain.CycleMonthly, true)
		store := newFakeSubStore()
		svc := NewSubscriptionService(store, plans)

		sub, err := svc.Subscribe(ctx, "user-1", plan.ID)
		require.NoError(t, err)
		require.NoError(t, svc.Cancel(ctx, member("user-1"), sub.ID))

		_, err = svc.Subscribe(ctx, "user-1", plan.ID)
		require.NoError(t, err)
	})
}

func TestSubscriptionTransitions(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*SubscriptionService, *fakeSubStore, *domain.Subscription) {
		t.Helper()
		plans := newFakePlanStore()
		plan := plans.add("Pro", "29.99", domain.CycleMonthly, true)
		store := newFakeSubStore()
		svc := NewSubscriptionService(store, plans)
		sub, err := svc.Subscribe(ctx, "user-1", plan.ID)
		require.NoError(t, err)
		return svc, store, sub
	}

	t.Run("pause then resume", func(t *testing.T) {
		svc, store, sub := setup(t)

		require.NoError(t, svc.Pause(ctx, member("user-1"), sub.ID))
		assert.Equal(t, domain.SubscriptionPaused, store.subs[sub.ID].Status)

		require.NoError(t, svc.Resume(ctx, member("user-1"), sub.ID))
		assert.Equal(t, domain.SubscriptionActive, store.subs[sub.ID].Status)

		hist, err := svc.History(ctx, member("user-1"), sub.ID)
		require.NoError(t, err)
		require.Len(t, hist, 3)
		assert.Equal(t, domain.ActionResumed, hist[2].Action)
		assert.Equal(t, domain.SubscriptionPaused, hist[2].PreviousStatus)
	})

	t.Run("pause requires active", func(t *testing.T) {
		svc, _, sub := setup(t)
		require.NoError(t, svc.Pause(ctx, member("user-1"), sub.ID))

		err := svc.Pause(ctx, member("user-1"), sub.ID)
		requireAppError(t, err, http.StatusConflict)
	})

	t.Run("resume requires paused", func(t *testing.T) {
		svc, _, sub := setup(t)
		err := svc.Resume(ctx, member("user-1"), sub.ID)
		requireAppError(t, err, http.StatusConflict)
	})

	t.Run("cancel sets end date and is terminal", func(t *testing.T) {
		svc, store, sub := setup(t)

		require.NoError(t, svc.Cancel(ctx, member("user-1"), sub.ID))
		assert.Equal(t, domain.SubscriptionCanceled, store.subs[sub.ID].Status)
		assert.NotNil(t, store.subs[sub.ID].EndDate)

		for name, fn := range map[string]func(context.Context, domain.SessionUser, string) error{
			"pause":  svc.Pause,
			"resume": svc.Resume,
			"cancel": svc.Cancel,
		} {
			err := fn(ctx, member("user-1"), sub.ID)
			requireAppError(t, err, http.StatusConflict)
			assert.Equal(t, domain.SubscriptionCanceled, store.subs[sub.ID].Status, "%s must not move a canceled subscription", name)
		}
	})

	t.Run("cancel works from paused", func(t *testing.T) {
		svc, store, sub := setup(t)
		require.NoError(t, svc.Pause(ctx, member("user-1"), sub.ID))
		require.NoError(t, svc.Cancel(ctx, member("user-1"), sub.ID))
		assert.Equal(t, domain.SubscriptionCanceled, store.subs[sub.ID].Status)
	})

	t.Run("another user is forbidden, admin is not", func(t *testing.T) {
		svc, _, sub := setup(t)

		err := svc.Pause(ctx, member("user-2"), sub.ID)
		requireAppError(t, err, http.StatusForbidden)

		require.NoError(t, svc.Pause(ctx, admin(), sub.ID))
	})

	t.Run("unknown subscription", func(t *testing.T) {
		svc, _, _ := setup(t)
		err := svc.Pause(ctx, member("user-1"), "no-such-id")
		requireAppError(t, err, http.StatusNotFound)
	})
}

func TestSubscriptionListing(t *testing.T) {
	ctx := context.Background()
	plans := newFakePlanStore()
	planA := plans.add("Pro", "29.99", domain.CycleMonthly, true)
	planB := plans.add("Basic", "9.99", domain.CycleMonthly, true)
	store := newFakeSubStore()
	svc := NewSubscriptionService(store, plans)

	_, err := svc.Subscribe(ctx, "user-1", planA.ID)
	require.NoError(t, err)
	_, err = svc.Subscribe(ctx, "user-2", planB.ID)
	require.NoError(t, err)

	t.Run("own subscriptions by default", func(t *testing.T) {
		subs, err := svc.ListForUser(ctx, member("user-1"), "")
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, "user-1", subs[0].UserID)
	})

	t.Run("non-admin cannot list another user", func(t *testing.T) {
		_, err := svc.ListForUser(ctx, member("user-1"), "user-2")
		requireAppError(t, err, http.StatusForbidden)
	})

	t.Run("admin can list any user", func(t *testing.T) {
		subs, err := svc.ListForUser(ctx, admin(), "user-2")
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, "user-2", subs[0].UserID)
	})

	t.Run("admin list all", func(t *testing.T) {
		subs, err := svc.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, subs, 2)
	})

	t.Run("history of someone else's subscription is forbidden", func(t *testing.T) {
		var otherID string
		for id, sub := range store.subs {
			if sub.UserID == "user-2" {
				otherID = id
			}
		}
		_, err := svc.History(ctx, member("user-1"), otherID)
		requireAppError(t, err, http.StatusForbidden)
	})
}

func TestNewInvoiceNumber(t *testing.T) {
	a := NewInvoiceNumber()
	b := NewInvoiceNumber()
	assert.True(t, strings.HasPrefix(a, "INV-"))
	assert.NotEqual(t, a, b)
}
