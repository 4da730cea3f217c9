package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stripelite/backend/internal/domain"
	"github.com/stripelite/backend/internal/service"
)

// PlansHandler handles plan catalog endpoints.
type PlansHandler struct {
	plans *service.PlanService
}

// NewPlansHandler creates a new PlansHandler.
func NewPlansHandler(plans *service.PlanService) *PlansHandler {
	return &PlansHandler{plans: plans}
}

// List handles GET /api/plans (public, active plans only).
func (h *PlansHandler) List(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.ListActive(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, plans)
}

// ListAll handles GET /api/admin/plans (includes deactivated plans).
func (h *PlansHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	plans, err := h.plans.ListAll(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, plans)
}

// Get handles GET /api/plans/{id}.
func (h *PlansHandler) Get(w http.ResponseWriter, r *http.Request) {
	plan, err := h.plans.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, plan)
}

// Create handles POST /api/admin/plans.
func (h *PlansHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.PlanRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	plan, err := h.plans.Create(r.Context(), &req)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusCreated, plan)
}

// Update handles PUT /api/admin/plans/{id}.
func (h *PlansHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.PlanRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	if err := h.plans.Update(r.Context(), chi.URLParam(r, "id"), &req); err != nil {
		Error(w, err)
		return
	}
	Success(w)
}

// Toggle handles POST /api/admin/plans/{id}/toggle.
func (h *PlansHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req domain.TogglePlanRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	if err := h.plans.SetActive(r.Context(), chi.URLParam(r, "id"), req.IsActive); err != nil {
		Error(w, err)
		return
	}
	Success(w)
}

// Delete handles DELETE /api/admin/plans/{id}.
func (h *PlansHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.plans.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		Error(w, err)
		return
	}
	Success(w)
}
