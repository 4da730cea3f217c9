package service

import (
	"context"
	"strings"
	"time"

	"github.com/stripelite/backend/internal/domain"
)

// PlanStore is the persistence surface PlanService needs.
type PlanStore interface {
	List(ctx context.Context, activeOnly bool) ([]domain.Plan, error)
	FindByID(ctx context.Context, id string) (*domain.Plan, error)
	Create(ctx context.Context, p *domain.Plan) error
	Update(ctx context.Context, p *domain.Plan) (bool, error)
	SetActive(ctx context.Context, id string, active bool) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	CountActiveSubscriptions(ctx context.Context, planID string) (int64, error)
}

// PlanService manages the plan catalog.
type PlanService struct {
	plans PlanStore
}

func NewPlanService(plans PlanStore) *PlanService {
	return &PlanService{plans: plans}
}

// ListActive returns active plans, cheapest first.
func (s *PlanService) ListActive(ctx context.Context) ([]domain.Plan, error) {
	plans, err := s.plans.List(ctx, true)
	if err != nil {
		return nil, storeErr("failed to list plans", err)
	}
	return plans, nil
}

// ListAll returns every plan including deactivated ones (admin catalog view).
func (s *PlanService) ListAll(ctx context.Context) ([]domain.Plan, error) {
	plans, err := s.plans.List(ctx, false)
	if err != nil {
		return nil, storeErr("failed to list plans", err)
	}
	return plans, nil
}

func (s *PlanService) GetByID(ctx context.Context, id string) (*domain.Plan, error) {
	plan, err := s.plans.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("failed to find plan", err)
	}
	if plan == nil {
		return nil, domain.ErrNotFound("plan not found")
	}
	return plan, nil
}

func (s *PlanService) Create(ctx context.Context, req *domain.PlanRequest) (*domain.Plan, error) {
	if err := validatePlanRequest(req); err != nil {
		return nil, err
	}

	now := time.Now()
	plan := &domain.Plan{
		ID:           domain.NewID(),
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		BillingCycle: req.BillingCycle,
		Features:     ParseFeatures(req.Features),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, storeErr("failed to create plan", err)
	}
	return plan, nil
}

func (s *PlanService) Update(ctx context.Context, id string, req *domain.PlanRequest) error {
	if err := validatePlanRequest(req); err != nil {
		return err
	}

	plan := &domain.Plan{
		ID:           id,
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		BillingCycle: req.BillingCycle,
		Features:     ParseFeatures(req.Features),
	}

	ok, err := s.plans.Update(ctx, plan)
	if err != nil {
		return storeErr("failed to update plan", err)
	}
	if !ok {
		return domain.ErrNotFound("plan not found")
	}
	return nil
}

// SetActive toggles the plan's visibility in the public catalog.
func (s *PlanService) SetActive(ctx context.Context, id string, active bool) error {
	ok, err := s.plans.SetActive(ctx, id, active)
	if err != nil {
		return storeErr("failed to toggle plan", err)
	}
	if !ok {
		return domain.ErrNotFound("plan not found")
	}
	return nil
}

// Delete hard-removes a plan. Blocked while any active subscription still
// references it.
func (s *PlanService) Delete(ctx context.Context, id string) error {
	count, err := s.plans.CountActiveSubscriptions(ctx, id)
	if err != nil {
		return storeErr("failed to check plan subscriptions", err)
	}
	if count > 0 {
		return domain.ErrConflict("cannot delete plan with active subscriptions")
	}

	ok, err := s.plans.Delete(ctx, id)
	if err != nil {
		return storeErr("failed to delete plan", err)
	}
	if !ok {
		return domain.ErrNotFound("plan not found")
	}
	return nil
}

func validatePlanRequest(req *domain.PlanRequest) error {
	if err := domain.Validate(req); err != nil {
		return err
	}
	if !req.Price.IsPositive() {
		return domain.ErrValidation("price must be positive")
	}
	return nil
}

// ParseFeatures splits a newline-delimited feature block into an ordered
// list, dropping blank lines.
func ParseFeatures(block string) []string {
	features := []string{}
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			features = append(features, line)
		}
	}
	return features
}
