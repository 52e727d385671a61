package dto

import "time"

// LoginRequest payload for admin and user login.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// LoginResponse is the data returned by a successful login.
type LoginResponse struct {
	SubjectID string    `json:"subject_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	RoleHint  string    `json:"role_hint,omitempty"`
	Status    string    `json:"status"`
}

// AccountStatusResponse reports the standing of an account.
type AccountStatusResponse struct {
	Status string `json:"status"`
}

// RoleFlagsResponse reports role flags of an account.
type RoleFlagsResponse struct {
	IsVendor bool `json:"is_vendor"`
}

// VendorUpdateRequest approves or revokes the vendor role.
type VendorUpdateRequest struct {
	IsVendor bool `json:"is_vendor"`
}

// Envelope wraps every successful API payload.
type Envelope[T any] struct {
	Data T `json:"data"`
}

// ErrorBody is the error shape written by the error middleware.
type ErrorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details,omitempty"`
	} `json:"error"`
}
