package session

import (
	"errors"
	"fmt"

	"github.com/spec-kit/storefront/internal/domain"
)

var (
	// ErrUnknownDomain is returned for a domain the manager does not own.
	ErrUnknownDomain = errors.New("session: unknown domain")
	// ErrAccountBlocked is returned when the API refuses a login for a blocked account.
	ErrAccountBlocked = errors.New("session: account blocked")
	// ErrNotAuthenticated is returned by operations that need a signed-in session.
	ErrNotAuthenticated = errors.New("session: not authenticated")
	// ErrRemoteUnavailable is returned when the manager was built without an API.
	ErrRemoteUnavailable = errors.New("session: no remote api configured")
)

// RemoteInvalidationError records a failed server-side logout. It is logged,
// never returned to guards: the local session is already gone.
type RemoteInvalidationError struct {
	Domain domain.Domain
	Err    error
}

func (e *RemoteInvalidationError) Error() string {
	return fmt.Sprintf("remote invalidation for %s failed: %v", e.Domain, e.Err)
}

func (e *RemoteInvalidationError) Unwrap() error {
	return e.Err
}
