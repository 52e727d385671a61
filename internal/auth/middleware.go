package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/observability"
)

const sessionKey = "auth_session"

// SessionSource is the read side of the authorization state plus the guard cleanup hook.
type SessionSource interface {
	State(d domain.Domain) domain.SessionState
	Ready(d domain.Domain) <-chan struct{}
	ClearCredential(ctx context.Context, d domain.Domain) error
}

// GuardMiddleware renders guard outcomes as fiber redirects.
type GuardMiddleware struct {
	sessions SessionSource
	routes   domain.Routes
	wait     time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewGuardMiddleware constructs middleware. wait bounds how long a navigation
// blocks on the first hydration before the loading placeholder is served.
func NewGuardMiddleware(sessions SessionSource, routes domain.Routes, wait time.Duration, logger *zap.Logger, metrics *observability.Metrics) *GuardMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuardMiddleware{sessions: sessions, routes: routes, wait: wait, logger: logger, metrics: metrics}
}

// RequireAuth admits authenticated, non-blocked sessions holding one of the allowed roles.
func (m *GuardMiddleware) RequireAuth(d domain.Domain, allowed ...domain.Role) fiber.Handler {
	return m.Handle(domain.RouteGuardConfig{Domain: d, Gate: domain.GateRequireAuth, AllowedRoles: allowed})
}

// RequireNoAuth admits visitors that are not signed in to d.
func (m *GuardMiddleware) RequireNoAuth(d domain.Domain) fiber.Handler {
	return m.Handle(domain.RouteGuardConfig{Domain: d, Gate: domain.GateRequireNoAuth})
}

// Handle evaluates cfg on every request against the latest published state.
func (m *GuardMiddleware) Handle(cfg domain.RouteGuardConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !m.awaitHydration(c, cfg.Domain) {
			m.metrics.RecordGuard(string(cfg.Domain), string(cfg.Gate), "loading")
			c.Set(fiber.HeaderRetryAfter, "1")
			return c.Status(http.StatusServiceUnavailable).SendString("loading session")
		}

		state := m.sessions.State(cfg.Domain)
		outcome := Decide(cfg, state, m.routes)
		m.metrics.RecordGuard(string(cfg.Domain), string(cfg.Gate), string(outcome.Kind))

		if outcome.Kind == OutcomeRender {
			c.Locals(sessionKey, state)
			return c.Next()
		}

		if outcome.ClearCredential {
			if err := m.sessions.ClearCredential(c.UserContext(), cfg.Domain); err != nil {
				m.logger.Warn("guard credential cleanup failed",
					zap.String("domain", string(cfg.Domain)),
					zap.Error(err),
				)
			}
		}
		m.logger.Debug("guard redirect",
			zap.String("domain", string(cfg.Domain)),
			zap.String("path", c.Path()),
			zap.String("target", outcome.Target),
			zap.String("reason", outcome.Reason),
		)
		return c.Redirect(outcome.Target, http.StatusFound)
	}
}

func (m *GuardMiddleware) awaitHydration(c *fiber.Ctx, d domain.Domain) bool {
	ready := m.sessions.Ready(d)
	select {
	case <-ready:
		return true
	default:
	}
	if m.wait <= 0 {
		return false
	}

	timer := time.NewTimer(m.wait)
	defer timer.Stop()
	select {
	case <-ready:
		return true
	case <-timer.C:
		return false
	case <-c.UserContext().Done():
		return false
	}
}

// SessionFromContext returns the state the guard admitted the request with.
func SessionFromContext(c *fiber.Ctx) (domain.SessionState, bool) {
	state, ok := c.Locals(sessionKey).(domain.SessionState)
	return state, ok
}
