package service

import "github.com/stripelite/backend/internal/domain"

// AdminPromotionPolicy decides the role assigned at signup. Two rules carry
// over from the original system: the first account ever created becomes
// admin, and a signup presenting the shared admin secret becomes admin.
type AdminPromotionPolicy struct {
	Secret string
}

// RoleFor returns the role for a signup given the secret the caller presented
// and the number of existing users.
func (p AdminPromotionPolicy) RoleFor(providedSecret string, existingUsers int64) string {
	if existingUsers == 0 {
		return domain.RoleAdmin
	}
	if p.Secret != "" && providedSecret == p.Secret {
		return domain.RoleAdmin
	}
	return domain.RoleUser
}
