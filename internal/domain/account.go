package domain

import "time"

// Account is an identity known to the development remote API.
type Account struct {
	ID           string
	Domain       Domain
	Email        string
	PasswordHash string
	Status       AccountStatus
	IsVendor     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role returns the role hint reported at login.
func (a *Account) Role() Role {
	if a.Domain == DomainUser && a.IsVendor {
		return RoleVendor
	}
	return RoleUser
}
