package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront/internal/auth"
	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/remote"
)

// Login authenticates against the API and, on success, stores the credential
// and publishes the authenticated state. A blocked account changes nothing.
func (m *Manager) Login(ctx context.Context, d domain.Domain, creds remote.Credentials) (domain.SessionState, error) {
	s, err := m.sliceFor(d)
	if err != nil {
		return domain.LoggedOut(d), err
	}

	if m.api == nil {
		return m.State(d), ErrRemoteUnavailable
	}

	res, err := m.api.Login(ctx, d, creds)
	if err != nil {
		return m.State(d), fmt.Errorf("login: %w", err)
	}
	if res.Status == domain.AccountStatusBlocked {
		m.logger.Info("login refused for blocked account",
			zap.String("domain", string(d)),
			zap.String("subject", res.SubjectID),
		)
		return m.State(d), ErrAccountBlocked
	}
	return m.Authenticate(ctx, s.domain, res)
}

// Authenticate applies an already successful login result.
func (m *Manager) Authenticate(ctx context.Context, d domain.Domain, res remote.LoginResult) (domain.SessionState, error) {
	s, err := m.sliceFor(d)
	if err != nil {
		return domain.LoggedOut(d), err
	}
	if res.Token == "" || res.SubjectID == "" {
		return m.State(d), errors.New("login: empty token or subject")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := m.store.Save(ctx, d, res.Token); err != nil {
		return m.currentState(s), fmt.Errorf("login: %w", err)
	}

	next := domain.SessionState{
		Domain:          d,
		IsAuthenticated: true,
		SubjectID:       res.SubjectID,
		Token:           res.Token,
		AccountStatus:   domain.AccountStatusUnknown,
	}
	if res.Status == domain.AccountStatusActive {
		next.AccountStatus = domain.AccountStatusActive
	}
	if d == domain.DomainUser {
		next.IsVendor = res.RoleHint == domain.RoleVendor
		if claims, err := m.decoder.Decode(res.Token); err == nil && auth.VendorFromClaims(claims) {
			next.IsVendor = true
		}
		if err := m.store.SetVendorFlag(ctx, next.IsVendor); err != nil {
			m.logger.Warn("failed to persist vendor flag", zap.Error(err))
		}
	}

	epoch := m.publish(ctx, s, "login", next, true)
	m.logger.Info("signed in",
		zap.String("domain", string(d)),
		zap.String("subject", next.SubjectID),
		zap.String("role", string(auth.ResolveRole(next))),
	)
	m.refineAsync(s, epoch, next)
	return next, nil
}

func (m *Manager) currentState(s *slice) domain.SessionState {
	st, _ := s.current()
	return st
}
