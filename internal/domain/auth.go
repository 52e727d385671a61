package domain

import "time"

// Domain identifies one of the two independent identity spaces.
type Domain string

const (
	DomainAdmin Domain = "admin"
	DomainUser  Domain = "user"
)

// Domains lists every identity domain in boot order.
var Domains = []Domain{DomainAdmin, DomainUser}

// Valid reports whether d is a known domain.
func (d Domain) Valid() bool {
	return d == DomainAdmin || d == DomainUser
}

// ParseDomain maps a route segment to a Domain.
func ParseDomain(s string) (Domain, bool) {
	switch s {
	case "admin":
		return DomainAdmin, true
	case "user", "users":
		return DomainUser, true
	}
	return "", false
}

// Credential is the persisted bearer token of a domain.
type Credential struct {
	Domain Domain
	Token  string
	Stored bool
}

// Claims is the structured payload decoded from a token.
type Claims struct {
	SubjectID string
	IssuedAt  *time.Time
	ExpiresAt *time.Time
	Extra     map[string]any
}

// Bool returns an extra claim as a boolean, accepting "true"/"false" strings.
func (c Claims) Bool(key string) (bool, bool) {
	v, ok := c.Extra[key]
	if !ok {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch t {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// String returns an extra claim as a string.
func (c Claims) String(key string) (string, bool) {
	v, ok := c.Extra[key].(string)
	return v, ok
}
