package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/stripelite/backend/internal/contextkeys"
	"github.com/stripelite/backend/internal/domain"
	"github.com/stripelite/backend/internal/handler"
)

// SessionCookie is the cookie carrying the signed session token.
const SessionCookie = "auth_token"

// TokenVerifier turns a raw token into the identity it carries.
type TokenVerifier interface {
	VerifyToken(token string) (*domain.SessionUser, error)
}

// Auth resolves the session from the auth cookie (or a bearer header) and
// stores the identity in the request context. Requests without a valid
// session are rejected before any work happens.
func Auth(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r)
			if token == "" {
				handler.JSON(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
				return
			}

			user, err := verifier.VerifyToken(token)
			if err != nil {
				handler.JSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired session"})
				return
			}

			ctx := context.WithValue(r.Context(), contextkeys.UserID, user.ID)
			ctx = context.WithValue(ctx, contextkeys.UserEmail, user.Email)
			ctx = context.WithValue(ctx, contextkeys.UserName, user.Name)
			ctx = context.WithValue(ctx, contextkeys.UserRole, user.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}
