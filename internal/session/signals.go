package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/events"
)

// HandleSignal applies a server-pushed account signal. Signals for another
// subject, or arriving while the domain is logged out, are ignored. It
// reports whether the signal changed the session.
func (m *Manager) HandleSignal(ctx context.Context, sig domain.AccountSignal) bool {
	d := sig.Domain
	if d == "" {
		d = domain.DomainUser
	}
	s, err := m.sliceFor(d)
	if err != nil {
		m.logger.Warn("signal for unknown domain", zap.String("domain", string(d)))
		return false
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur, _ := s.current()
	if !cur.IsAuthenticated || cur.SubjectID != sig.SubjectID {
		return false
	}

	switch sig.Type {
	case domain.SignalAccountBlocked:
		if cur.Blocked() {
			return false
		}
		m.blockLocked(ctx, s, cur, "blocked_signal")
		return true
	case domain.SignalVendorApproved, domain.SignalVendorRevoked:
		if d != domain.DomainUser {
			return false
		}
		want := sig.Type == domain.SignalVendorApproved
		return m.applyVendorLocked(ctx, s, cur, want, "vendor_signal").IsVendor != cur.IsVendor
	}

	m.logger.Debug("ignoring unknown signal", zap.String("type", string(sig.Type)))
	return false
}

// ListenForSignals applies every account signal published on the dispatcher.
func (m *Manager) ListenForSignals() (unsubscribe func()) {
	return m.events.Subscribe(events.EventAccountSignal, func(ctx context.Context, e events.Event) error {
		sig, ok := e.Payload.(domain.AccountSignal)
		if !ok {
			return nil
		}
		m.HandleSignal(ctx, sig)
		return nil
	})
}
