package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stripelite/backend/internal/domain"
	"github.com/stripelite/backend/internal/service"
)

// SubscriptionHandler handles subscription lifecycle endpoints.
type SubscriptionHandler struct {
	subs *service.SubscriptionService
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(subs *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs}
}

// Create handles POST /api/subscriptions.
func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req domain.SubscribeRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}
	if err := domain.Validate(&req); err != nil {
		Error(w, err)
		return
	}

	sub, err := h.subs.Subscribe(r.Context(), user.ID, req.PlanID)
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusCreated, map[string]interface{}{"success": true, "subscription": sub})
}

// List handles GET /api/subscriptions. Admins may pass ?user_id= to view
// another user's subscriptions.
func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := requireSession(w, r)
	if !ok {
		return
	}

	subs, err := h.subs.ListForUser(r.Context(), user, r.URL.Query().Get("user_id"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, subs)
}

// ListAll handles GET /api/admin/subscriptions.
func (h *SubscriptionHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	subs, err := h.subs.ListAll(r.Context())
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, subs)
}

// History handles GET /api/subscriptions/{id}/history.
func (h *SubscriptionHandler) History(w http.ResponseWriter, r *http.Request) {
	user, ok := requireSession(w, r)
	if !ok {
		return
	}

	entries, err := h.subs.History(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, entries)
}

// Pause handles POST /api/subscriptions/{id}/pause.
func (h *SubscriptionHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.subs.Pause)
}

// Resume handles POST /api/subscriptions/{id}/resume.
func (h *SubscriptionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.subs.Resume)
}

// Cancel handles POST /api/subscriptions/{id}/cancel.
func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.subs.Cancel)
}

func (h *SubscriptionHandler) act(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actor domain.SessionUser, id string) error) {
	user, ok := requireSession(w, r)
	if !ok {
		return
	}

	if err := fn(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		Error(w, err)
		return
	}
	Success(w)
}
