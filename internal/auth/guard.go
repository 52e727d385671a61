package auth

import "github.com/spec-kit/storefront/internal/domain"

// OutcomeKind tags a guard decision.
type OutcomeKind string

const (
	OutcomeRender   OutcomeKind = "render"
	OutcomeRedirect OutcomeKind = "redirect"
)

// Redirect reasons.
const (
	ReasonUnauthenticated = "unauthenticated"
	ReasonBlocked         = "blocked"
	ReasonRole            = "role"
	ReasonAuthenticated   = "authenticated"
	ReasonRoleSelect      = "role_select"
)

// Outcome is the result of evaluating a guard.
// ClearCredential asks the caller to drop the domain's stored credential.
type Outcome struct {
	Kind            OutcomeKind
	Target          string
	Reason          string
	ClearCredential bool
}

// Render is the pass-through outcome.
func Render() Outcome {
	return Outcome{Kind: OutcomeRender}
}

// Decide evaluates cfg against the current session state.
func Decide(cfg domain.RouteGuardConfig, state domain.SessionState, routes domain.Routes) Outcome {
	switch cfg.Gate {
	case domain.GateRequireNoAuth:
		return decideNoAuth(cfg, state, routes)
	default:
		return decideAuth(cfg, state, routes)
	}
}

func decideAuth(cfg domain.RouteGuardConfig, state domain.SessionState, routes domain.Routes) Outcome {
	if state.Blocked() {
		return Outcome{Kind: OutcomeRedirect, Target: routes.Login(cfg.Domain), Reason: ReasonBlocked, ClearCredential: true}
	}
	if !state.IsAuthenticated {
		return Outcome{Kind: OutcomeRedirect, Target: routes.Login(cfg.Domain), Reason: ReasonUnauthenticated, ClearCredential: true}
	}
	if cfg.Domain == domain.DomainUser {
		role := ResolveRole(state)
		if !roleAllowed(role, cfg.AllowedRoles) {
			return Outcome{Kind: OutcomeRedirect, Target: routes.Home(role), Reason: ReasonRole}
		}
	}
	return Render()
}

func decideNoAuth(cfg domain.RouteGuardConfig, state domain.SessionState, routes domain.Routes) Outcome {
	// Blocked renders the login form. Redirecting it to landing would loop:
	// landing requires auth, and RequireAuth sends a blocked session back here.
	if !state.IsAuthenticated || state.Blocked() {
		return Render()
	}
	if cfg.Domain == domain.DomainUser && ResolveRole(state) == domain.RoleVendor {
		return Outcome{Kind: OutcomeRedirect, Target: routes.RoleSelect, Reason: ReasonRoleSelect}
	}
	return Outcome{Kind: OutcomeRedirect, Target: routes.Landing(cfg.Domain), Reason: ReasonAuthenticated}
}
