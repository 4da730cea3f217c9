package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripelite/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserStore struct {
	users map[string]*domain.User // keyed by email
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*domain.User)}
}

func (s *fakeUserStore) Create(ctx context.Context, user *domain.User) error {
	s.users[user.Email] = user
	return nil
}

func (s *fakeUserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.users[email], nil
}

func (s *fakeUserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (s *fakeUserStore) Exists(ctx context.Context, email string) (bool, error) {
	_, ok := s.users[email]
	return ok, nil
}

func (s *fakeUserStore) Count(ctx context.Context) (int64, error) {
	return int64(len(s.users)), nil
}

func (s *fakeUserStore) ListAll(ctx context.Context) ([]*domain.User, error) {
	out := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *fakeUserStore) PromoteToAdmin(ctx context.Context, email, passwordHash string) (bool, error) {
	u, ok := s.users[email]
	if !ok {
		return false, nil
	}
	u.Role = domain.RoleAdmin
	u.Password = passwordHash
	return true, nil
}

func newTestAuthService(store UserStore) *AuthService {
	policy := AdminPromotionPolicy{Secret: "letmein"}
	return NewAuthService("test-secret", bcrypt.MinCost, policy, store)
}

func TestSignup(t *testing.T) {
	ctx := context.Background()

	t.Run("first user becomes admin and gets a session", func(t *testing.T) {
		svc := newTestAuthService(newFakeUserStore())
		resp, err := svc.Signup(ctx, &domain.SignupRequest{
			Email: "alice@example.com", Password: "hunter22", Name: "Alice",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, resp.User.Role)
		assert.NotEmpty(t, resp.Token)

		session, err := svc.VerifyToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, resp.User.ID, session.ID)
		assert.Equal(t, "Alice", session.Name)
		assert.Equal(t, domain.RoleAdmin, session.Role)
	})

	t.Run("second user without secret is a regular user", func(t *testing.T) {
		svc := newTestAuthService(newFakeUserStore())
		_, err := svc.Signup(ctx, &domain.SignupRequest{Email: "a@x.com", Password: "password", Name: "A"})
		require.NoError(t, err)

		resp, err := svc.Signup(ctx, &domain.SignupRequest{Email: "b@x.com", Password: "password", Name: "B"})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleUser, resp.User.Role)
	})

	t.Run("admin secret promotes later signups", func(t *testing.T) {
		svc := newTestAuthService(newFakeUserStore())
		_, err := svc.Signup(ctx, &domain.SignupRequest{Email: "a@x.com", Password: "password", Name: "A"})
		require.NoError(t, err)

		resp, err := svc.Signup(ctx, &domain.SignupRequest{
			Email: "b@x.com", Password: "password", Name: "B", AdminSecretKey: "letmein",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, resp.User.Role)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		svc := newTestAuthService(newFakeUserStore())
		_, err := svc.Signup(ctx, &domain.SignupRequest{Email: "a@x.com", Password: "password", Name: "A"})
		require.NoError(t, err)

		_, err = svc.Signup(ctx, &domain.SignupRequest{Email: "a@x.com", Password: "password", Name: "A2"})
		requireAppError(t, err, http.StatusConflict)
	})

	t.Run("short password is rejected", func(t *testing.T) {
		svc := newTestAuthService(newFakeUserStore())
		_, err := svc.Signup(ctx, &domain.SignupRequest{Email: "a@x.com", Password: "abc", Name: "A"})
		requireAppError(t, err, http.StatusUnprocessableEntity)
	})

	t.Run("invalid email is rejected", func(t *testing.T) {
		svc := newTestAuthService(newFakeUserStore())
		_, err := svc.Signup(ctx, &domain.SignupRequest{Email: "not-an-email", Password: "password", Name: "A"})
		requireAppError(t, err, http.StatusUnprocessableEntity)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuthService(newFakeUserStore())
	_, err := svc.Signup(ctx, &domain.SignupRequest{Email: "a@x.com", Password: "password", Name: "A"})
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		resp, err := svc.Login(ctx, &domain.LoginRequest{Email: "a@x.com", Password: "password"})
		require.NoError(t, err)
		assert.Equal(t, "a@x.com", resp.User.Email)
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, &domain.LoginRequest{Email: "a@x.com", Password: "wrong"})
		requireAppError(t, err, http.StatusUnauthorized)
	})

	t.Run("unknown email gets the same error", func(t *testing.T) {
		_, err := svc.Login(ctx, &domain.LoginRequest{Email: "nobody@x.com", Password: "password"})
		requireAppError(t, err, http.StatusUnauthorized)
		assert.Equal(t, "invalid email or password", err.Error())
	})
}

func TestVerifyToken(t *testing.T) {
	svc := newTestAuthService(newFakeUserStore())

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.VerifyToken("not-a-token")
		requireAppError(t, err, http.StatusUnauthorized)
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		other := NewAuthService("other-secret", bcrypt.MinCost, AdminPromotionPolicy{}, newFakeUserStore())
		resp, err := other.Signup(context.Background(), &domain.SignupRequest{
			Email: "a@x.com", Password: "password", Name: "A",
		})
		require.NoError(t, err)

		_, err = svc.VerifyToken(resp.Token)
		requireAppError(t, err, http.StatusUnauthorized)
	})
}

func TestMakeAdmin(t *testing.T) {
	ctx := context.Background()
	store := newFakeUserStore()
	svc := newTestAuthService(store)
	_, err := svc.Signup(ctx, &domain.SignupRequest{Email: "a@x.com", Password: "password", Name: "A"})
	require.NoError(t, err)
	_, err = svc.Signup(ctx, &domain.SignupRequest{Email: "b@x.com", Password: "password", Name: "B"})
	require.NoError(t, err)

	t.Run("elevates and replaces password", func(t *testing.T) {
		err := svc.MakeAdmin(ctx, &domain.MakeAdminRequest{Email: "b@x.com", Password: "newpassword"})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, store.users["b@x.com"].Role)

		resp, err := svc.Login(ctx, &domain.LoginRequest{Email: "b@x.com", Password: "newpassword"})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, resp.User.Role)
	})

	t.Run("unknown user", func(t *testing.T) {
		err := svc.MakeAdmin(ctx, &domain.MakeAdminRequest{Email: "nobody@x.com", Password: "newpassword"})
		requireAppError(t, err, http.StatusNotFound)
	})
}

// requireAppError asserts err is an AppError with the given status code.
func requireAppError(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := domain.AsAppError(err)
	require.True(t, ok, "expected AppError, got %T: %v", err, err)
	require.Equal(t, code, appErr.Code, "unexpected status for error: %v", err)
}
