package handler

import (
	"net/http"

	"github.com/stripelite/backend/internal/contextkeys"
	"github.com/stripelite/backend/internal/domain"
)

// sessionUser reassembles the identity the auth middleware stored in context.
func sessionUser(r *http.Request) (domain.SessionUser, bool) {
	id, ok := r.Context().Value(contextkeys.UserID).(string)
	if !ok || id == "" {
		return domain.SessionUser{}, false
	}
	email, _ := r.Context().Value(contextkeys.UserEmail).(string)
	name, _ := r.Context().Value(contextkeys.UserName).(string)
	role, _ := r.Context().Value(contextkeys.UserRole).(string)
	return domain.SessionUser{ID: id, Email: email, Name: name, Role: role}, true
}

// requireSession writes a 401 and returns false when no identity is present.
func requireSession(w http.ResponseWriter, r *http.Request) (domain.SessionUser, bool) {
	user, ok := sessionUser(r)
	if !ok {
		JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	return user, ok
}
