package domain

// SignalType enumerates server-pushed account signals.
type SignalType string

const (
	SignalAccountBlocked SignalType = "account_blocked"
	SignalVendorApproved SignalType = "vendor_approved"
	SignalVendorRevoked  SignalType = "vendor_revoked"
)

// AccountSignal is a server-pushed notification about one account.
type AccountSignal struct {
	ID        string     `json:"id"`
	Type      SignalType `json:"type"`
	Domain    Domain     `json:"domain"`
	SubjectID string     `json:"subject_id"`
}
