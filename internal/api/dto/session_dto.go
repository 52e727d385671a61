package dto

import "github.com/spec-kit/storefront/internal/domain"

// SessionResponse is the read-only snapshot exposed to UI layers.
type SessionResponse struct {
	Domain          domain.Domain        `json:"domain"`
	Ready           bool                 `json:"ready"`
	IsAuthenticated bool                 `json:"is_authenticated"`
	SubjectID       string               `json:"subject_id,omitempty"`
	AccountStatus   domain.AccountStatus `json:"account_status"`
	IsVendor        bool                 `json:"is_vendor"`
	Role            domain.Role          `json:"role,omitempty"`
}

// RoleSelectRequest picks the landing role of a vendor-capable identity.
type RoleSelectRequest struct {
	Role string `json:"role" form:"role"`
}
