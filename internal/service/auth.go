package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stripelite/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 7 * 24 * time.Hour

// UserStore is the persistence surface AuthService needs.
type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Exists(ctx context.Context, email string) (bool, error)
	Count(ctx context.Context) (int64, error)
	ListAll(ctx context.Context) ([]*domain.User, error)
	PromoteToAdmin(ctx context.Context, email, passwordHash string) (bool, error)
}

// AuthService handles signup, login, and session token verification.
type AuthService struct {
	jwtSecret  string
	bcryptCost int
	policy     AdminPromotionPolicy
	users      UserStore
}

// NewAuthService creates a new AuthService.
func NewAuthService(jwtSecret string, bcryptCost int, policy AdminPromotionPolicy, users UserStore) *AuthService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		jwtSecret:  jwtSecret,
		bcryptCost: bcryptCost,
		policy:     policy,
		users:      users,
	}
}

// Signup creates an account and returns a session token. The promotion
// policy decides whether the new account is an admin.
func (s *AuthService) Signup(ctx context.Context, req *domain.SignupRequest) (*domain.AuthResponse, error) {
	if err := domain.Validate(req); err != nil {
		return nil, err
	}

	exists, err := s.users.Exists(ctx, req.Email)
	if err != nil {
		return nil, storeErr("failed to check user", err)
	}
	if exists {
		return nil, domain.ErrConflict("user already exists with this email")
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, storeErr("failed to count users", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, domain.ErrInternal("failed to hash password", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:        domain.NewID(),
		Email:     req.Email,
		Password:  string(hashed),
		Name:      req.Name,
		Role:      s.policy.RoleFor(req.AdminSecretKey, count),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, storeErr("failed to create user", err)
	}

	return s.issueSession(user)
}

// Login validates credentials and returns a session token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	if err := domain.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, storeErr("failed to find user", err)
	}
	if user == nil {
		return nil, domain.ErrUnauthorized("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, domain.ErrUnauthorized("invalid email or password")
	}

	return s.issueSession(user)
}

func (s *AuthService) issueSession(user *domain.User) (*domain.AuthResponse, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"name":  user.Name,
		"role":  user.Role,
		"exp":   time.Now().Add(tokenTTL).Unix(),
		"iat":   time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, domain.ErrInternal("failed to sign token", err)
	}

	return &domain.AuthResponse{
		Token: signed,
		User: domain.SessionUser{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
			Role:  user.Role,
		},
	}, nil
}

// VerifyToken validates a session token and returns the identity it carries.
func (s *AuthService) VerifyToken(tokenStr string) (*domain.SessionUser, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, domain.ErrUnauthorized("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrUnauthorized("invalid token claims")
	}

	return &domain.SessionUser{
		ID:    getClaimString(claims, "sub"),
		Email: getClaimString(claims, "email"),
		Name:  getClaimString(claims, "name"),
		Role:  getClaimString(claims, "role"),
	}, nil
}

func getClaimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// GetUserByID returns a user profile by ID (for /api/auth/me).
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*domain.UserResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("failed to find user", err)
	}
	if user == nil {
		return nil, domain.ErrNotFound("user not found")
	}
	return userResponse(user), nil
}

// ListUsers returns all users (admin only).
func (s *AuthService) ListUsers(ctx context.Context) ([]*domain.UserResponse, error) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, storeErr("failed to list users", err)
	}

	responses := make([]*domain.UserResponse, len(users))
	for i, u := range users {
		responses[i] = userResponse(u)
	}
	return responses, nil
}

func userResponse(u *domain.User) *domain.UserResponse {
	return &domain.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// MakeAdmin elevates the user with the given email to admin and replaces
// their password. Reached only through the operator-gated setup endpoint.
func (s *AuthService) MakeAdmin(ctx context.Context, req *domain.MakeAdminRequest) error {
	if err := domain.Validate(req); err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return domain.ErrInternal("failed to hash password", err)
	}

	ok, err := s.users.PromoteToAdmin(ctx, req.Email, string(hashed))
	if err != nil {
		return storeErr("failed to promote user", err)
	}
	if !ok {
		return domain.ErrNotFound("user not found")
	}
	return nil
}
