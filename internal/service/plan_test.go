package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripelite/backend/internal/domain"
)

// fakePlanStore backs both the plan tests and the subscription tests
// (it satisfies PlanGetter).
type fakePlanStore struct {
	plans      map[string]*domain.Plan
	activeSubs map[string]int64 // planID -> active subscription count
}

func newFakePlanStore() *fakePlanStore {
	return &fakePlanStore{
		plans:      make(map[string]*domain.Plan),
		activeSubs: make(map[string]int64),
	}
}

func (s *fakePlanStore) List(ctx context.Context, activeOnly bool) ([]domain.Plan, error) {
	out := []domain.Plan{}
	for _, p := range s.plans {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (s *fakePlanStore) FindByID(ctx context.Context, id string) (*domain.Plan, error) {
	return s.plans[id], nil
}

func (s *fakePlanStore) Create(ctx context.Context, p *domain.Plan) error {
	s.plans[p.ID] = p
	return nil
}

func (s *fakePlanStore) Update(ctx context.Context, p *domain.Plan) (bool, error) {
	existing, ok := s.plans[p.ID]
	if !ok {
		return false, nil
	}
	existing.Name = p.Name
	existing.Description = p.Description
	existing.Price = p.Price
	existing.BillingCycle = p.BillingCycle
	existing.Features = p.Features
	existing.UpdatedAt = time.Now()
	return true, nil
}

func (s *fakePlanStore) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	p, ok := s.plans[id]
	if !ok {
		return false, nil
	}
	p.IsActive = active
	return true, nil
}

func (s *fakePlanStore) Delete(ctx context.Context, id string) (bool, error) {
	if _, ok := s.plans[id]; !ok {
		return false, nil
	}
	delete(s.plans, id)
	return true, nil
}

func (s *fakePlanStore) CountActiveSubscriptions(ctx context.Context, planID string) (int64, error) {
	return s.activeSubs[planID], nil
}

func (s *fakePlanStore) add(name string, price string, cycle string, active bool) *domain.Plan {
	p := &domain.Plan{
		ID:           domain.NewID(),
		Name:         name,
		Price:        decimal.RequireFromString(price),
		BillingCycle: cycle,
		Features:     []string{"feature one"},
		IsActive:     active,
	}
	s.plans[p.ID] = p
	return p
}

func TestPlanCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid plan", func(t *testing.T) {
		store := newFakePlanStore()
		svc := NewPlanService(store)

		plan, err := svc.Create(ctx, &domain.PlanRequest{
			Name:         "Pro",
			Description:  "For teams",
			Price:        decimal.RequireFromString("29.99"),
			BillingCycle: domain.CycleMonthly,
			Features:     "10 projects\n\nPriority support\n",
		})
		require.NoError(t, err)
		assert.True(t, plan.IsActive)
		assert.Equal(t, []string{"10 projects", "Priority support"}, plan.Features)
		assert.NotNil(t, store.plans[plan.ID])
	})

	t.Run("missing name", func(t *testing.T) {
		svc := NewPlanService(newFakePlanStore())
		_, err := svc.Create(ctx, &domain.PlanRequest{
			Price:        decimal.RequireFromString("9.99"),
			BillingCycle: domain.CycleMonthly,
		})
		requireAppError(t, err, http.StatusUnprocessableEntity)
	})

	t.Run("non-positive price", func(t *testing.T) {
		svc := NewPlanService(newFakePlanStore())
		_, err := svc.Create(ctx, &domain.PlanRequest{
			Name:         "Free",
			Price:        decimal.Zero,
			BillingCycle: domain.CycleMonthly,
		})
		requireAppError(t, err, http.StatusUnprocessableEntity)
	})

	t.Run("bad billing cycle", func(t *testing.T) {
		svc := NewPlanService(newFakePlanStore())
		_, err := svc.Create(ctx, &domain.PlanRequest{
			Name:         "Weekly",
			Price:        decimal.RequireFromString("4.99"),
			BillingCycle: "weekly",
		})
		requireAppError(t, err, http.StatusUnprocessableEntity)
	})
}

func TestPlanListActive(t *testing.T) {
	ctx := context.Background()
	store := newFakePlanStore()
	store.add("Basic", "9.99", domain.CycleMonthly, true)
	store.add("Legacy", "19.99", domain.CycleMonthly, false)
	svc := NewPlanService(store)

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Basic", active[0].Name)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPlanUpdate(t *testing.T) {
	ctx := context.Background()
	store := newFakePlanStore()
	plan := store.add("Basic", "9.99", domain.CycleMonthly, true)
	svc := NewPlanService(store)

	t.Run("existing plan", func(t *testing.T) {
		err := svc.Update(ctx, plan.ID, &domain.PlanRequest{
			Name:         "Basic Plus",
			Price:        decimal.RequireFromString("12.99"),
			BillingCycle: domain.CycleYearly,
		})
		require.NoError(t, err)
		assert.Equal(t, "Basic Plus", store.plans[plan.ID].Name)
		assert.Equal(t, domain.CycleYearly, store.plans[plan.ID].BillingCycle)
	})

	t.Run("missing plan", func(t *testing.T) {
		err := svc.Update(ctx, "no-such-id", &domain.PlanRequest{
			Name:         "Ghost",
			Price:        decimal.RequireFromString("1.00"),
			BillingCycle: domain.CycleMonthly,
		})
		requireAppError(t, err, http.StatusNotFound)
	})
}

func TestPlanSetActive(t *testing.T) {
	ctx := context.Background()
	store := newFakePlanStore()
	plan := store.add("Basic", "9.99", domain.CycleMonthly, true)
	svc := NewPlanService(store)

	require.NoError(t, svc.SetActive(ctx, plan.ID, false))
	assert.False(t, store.plans[plan.ID].IsActive)

	err := svc.SetActive(ctx, "no-such-id", true)
	requireAppError(t, err, http.StatusNotFound)
}

func TestPlanDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("unreferenced plan", func(t *testing.T) {
		store := newFakePlanStore()
		plan := store.add("Basic", "9.99", domain.CycleMonthly, true)
		svc := NewPlanService(store)

		require.NoError(t, svc.Delete(ctx, plan.ID))
		assert.Nil(t, store.plans[plan.ID])
	})

	t.Run("plan with active subscriptions", func(t *testing.T) {
		store := newFakePlanStore()
		plan := store.add("Basic", "9.99", domain.CycleMonthly, true)
		store.activeSubs[plan.ID] = 3
		svc := NewPlanService(store)

		err := svc.Delete(ctx, plan.ID)
		requireAppError(t, err, http.StatusConflict)
		assert.NotNil(t, store.plans[plan.ID], "plan must survive a blocked delete")
	})

	t.Run("missing plan", func(t *testing.T) {
		svc := NewPlanService(newFakePlanStore())
		err := svc.Delete(ctx, "no-such-id")
		requireAppError(t, err, http.StatusNotFound)
	})
}

func TestParseFeatures(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, ParseFeatures("a\nb"))
	assert.Equal(t, []string{"a", "b"}, ParseFeatures("  a  \n\n\tb\n"))
	assert.Empty(t, ParseFeatures(""))
	assert.Empty(t, ParseFeatures("\n\n"))
}
