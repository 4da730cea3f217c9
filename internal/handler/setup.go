package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stripelite/backend/internal/domain"
	"github.com/stripelite/backend/internal/repository"
	"github.com/stripelite/backend/internal/service"
)

// SetupHandler exposes the operator bootstrap endpoints: schema creation and
// the admin-elevation side channel. Both require the operator token; with no
// token configured they are disabled outright.
type SetupHandler struct {
	db    *pgxpool.Pool
	auth  *service.AuthService
	token string
}

// NewSetupHandler creates a new SetupHandler.
func NewSetupHandler(db *pgxpool.Pool, auth *service.AuthService, token string) *SetupHandler {
	return &SetupHandler{db: db, auth: auth, token: token}
}

// Database handles POST /api/setup/database: idempotent schema bootstrap and
// sample plan seeding.
func (h *SetupHandler) Database(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	if err := repository.Bootstrap(r.Context(), h.db); err != nil {
		Error(w, domain.ErrInternal("database setup failed", err))
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "database setup completed",
	})
}

// MakeAdmin handles POST /api/setup/admin: elevates an existing user to admin
// and replaces their password.
func (h *SetupHandler) MakeAdmin(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	var req domain.MakeAdminRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	if err := h.auth.MakeAdmin(r.Context(), &req); err != nil {
		Error(w, err)
		return
	}
	Success(w)
}

func (h *SetupHandler) authorize(w http.ResponseWriter, r *http.Request) bool {
	if h.token == "" {
		JSON(w, http.StatusNotFound, map[string]string{"error": "setup endpoints are disabled"})
		return false
	}
	provided := r.Header.Get("X-Setup-Token")
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.token)) != 1 {
		JSON(w, http.StatusForbidden, map[string]string{"error": "invalid setup token"})
		return false
	}
	return true
}
