package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront/internal/domain"
)

// Logout clears the local session of d and then asks the API to invalidate
// the token. The local state is reset before the remote call starts, so a
// slow or failing API never keeps the session alive on this device.
// Calling Logout on a logged-out domain is a no-op. Without an API only the
// local session is cleared.
func (m *Manager) Logout(ctx context.Context, d domain.Domain) {
	s, err := m.sliceFor(d)
	if err != nil {
		return
	}

	prev := m.resetLocal(ctx, s, "logout")
	if prev.Token == "" || m.api == nil {
		m.metrics.RecordLogout(string(d), "skipped")
		return
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.logoutTimeout)
	defer cancel()

	if err := m.api.Logout(rctx, d, prev.Token); err != nil {
		m.metrics.RecordLogout(string(d), "failed")
		m.logger.Warn("remote logout failed",
			zap.Error(&RemoteInvalidationError{Domain: d, Err: err}),
			zap.String("subject", prev.SubjectID),
		)
		return
	}
	m.metrics.RecordLogout(string(d), "ok")
	m.logger.Info("signed out", zap.String("domain", string(d)), zap.String("subject", prev.SubjectID))
}

// ClearCredential drops the stored credential of d on behalf of a guard and
// resets a signed-in or blocked session to logged out.
func (m *Manager) ClearCredential(ctx context.Context, d domain.Domain) error {
	s, err := m.sliceFor(d)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	clearErr := m.store.Clear(ctx, d)
	prev, _ := s.current()
	if prev.IsAuthenticated {
		m.publish(ctx, s, "guard_cleanup", loggedOutFrom(prev), true)
	}
	return clearErr
}

// resetLocal clears the credential and publishes the logged-out state, returning the previous state.
func (m *Manager) resetLocal(ctx context.Context, s *slice, transition string) domain.SessionState {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev, _ := s.current()
	if err := m.store.Clear(ctx, s.domain); err != nil {
		m.logger.Warn("failed to clear credential",
			zap.String("domain", string(s.domain)),
			zap.Error(err),
		)
	}
	if prev.IsAuthenticated || !m.isReady(s) {
		m.publish(ctx, s, transition, loggedOutFrom(prev), true)
	}
	return prev
}

func (m *Manager) isReady(s *slice) bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}
