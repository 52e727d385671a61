package domain

// AccountStatus is the server-side standing of an account.
type AccountStatus string

const (
	AccountStatusUnknown AccountStatus = "UNKNOWN"
	AccountStatusActive  AccountStatus = "ACTIVE"
	AccountStatusBlocked AccountStatus = "BLOCKED"
)

// ParseAccountStatus normalises a remote status string. Anything unrecognised is Unknown.
func ParseAccountStatus(s string) AccountStatus {
	switch s {
	case "ACTIVE", "active", "Active":
		return AccountStatusActive
	case "BLOCKED", "blocked", "Blocked":
		return AccountStatusBlocked
	}
	return AccountStatusUnknown
}

// Role is the effective access level inside the user domain.
type Role string

const (
	RoleUser   Role = "user"
	RoleVendor Role = "vendor"
)

// ParseRole maps a string to a Role.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "user":
		return RoleUser, true
	case "vendor":
		return RoleVendor, true
	}
	return "", false
}

// SessionState is the authorization snapshot of one domain.
//
// Authenticated implies SubjectID and Token are non-empty. IsVendor is only
// meaningful for DomainUser.
type SessionState struct {
	Domain          Domain        `json:"domain"`
	IsAuthenticated bool          `json:"is_authenticated"`
	SubjectID       string        `json:"subject_id,omitempty"`
	Token           string        `json:"-"`
	AccountStatus   AccountStatus `json:"account_status"`
	IsVendor        bool          `json:"is_vendor"`
}

// LoggedOut returns the resting unauthenticated state for d.
func LoggedOut(d Domain) SessionState {
	return SessionState{Domain: d, AccountStatus: AccountStatusUnknown}
}

// Blocked reports whether the account is known to be blocked.
func (s SessionState) Blocked() bool {
	return s.AccountStatus == AccountStatusBlocked
}

// Consistent reports whether the authenticated invariant holds.
func (s SessionState) Consistent() bool {
	if !s.IsAuthenticated {
		return true
	}
	return s.SubjectID != "" && s.Token != ""
}
