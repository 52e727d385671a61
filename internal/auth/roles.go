package auth

import "github.com/spec-kit/storefront/internal/domain"

// ResolveRole projects the effective role of a user-domain session.
// It is recomputed on every call; anything short of a vendor flag is RoleUser.
func ResolveRole(s domain.SessionState) domain.Role {
	if s.Domain == domain.DomainUser && s.IsVendor {
		return domain.RoleVendor
	}
	return domain.RoleUser
}

func roleAllowed(role domain.Role, allowed []domain.Role) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
