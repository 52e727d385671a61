package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront/internal/auth"
	"github.com/spec-kit/storefront/internal/domain"
)

// Hydration results recorded in metrics.
const (
	hydrateAuthenticated = "authenticated"
	hydrateAbsent        = "absent"
	hydrateDecodeFailed  = "decode_failed"
	hydrateStoreError    = "store_error"
	hydrateBlocked       = "blocked"
)

// Boot hydrates every domain concurrently and returns once all are ready.
// Domains never wait on each other.
func (m *Manager) Boot(ctx context.Context) {
	var wg sync.WaitGroup
	for _, d := range domain.Domains {
		wg.Add(1)
		go func(d domain.Domain) {
			defer wg.Done()
			m.Hydrate(ctx, d)
		}(d)
	}
	wg.Wait()
}

// Hydrate rebuilds the state of d from its stored credential and publishes it.
// Absence, store failures and undecodable tokens all end in the logged-out state;
// an undecodable token is also removed from the store. A blocked session
// stays blocked: its stored credential is cleared again, never decoded.
func (m *Manager) Hydrate(ctx context.Context, d domain.Domain) domain.SessionState {
	s, err := m.sliceFor(d)
	if err != nil {
		return domain.LoggedOut(d)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if cur, _ := s.current(); cur.Blocked() {
		if err := m.store.Clear(ctx, d); err != nil {
			m.logger.Warn("failed to clear blocked credential",
				zap.String("domain", string(d)),
				zap.Error(err),
			)
		}
		next := loggedOutFrom(cur)
		m.metrics.RecordHydration(string(d), hydrateBlocked)
		m.publish(ctx, s, "hydrate", next, true)
		return next
	}

	next, result := m.hydrateState(ctx, d)
	m.metrics.RecordHydration(string(d), result)

	epoch := m.publish(ctx, s, "hydrate", next, true)
	if next.IsAuthenticated {
		m.refineAsync(s, epoch, next)
	}
	return next
}

func (m *Manager) hydrateState(ctx context.Context, d domain.Domain) (domain.SessionState, string) {
	logged := domain.LoggedOut(d)

	cred, err := m.store.Load(ctx, d)
	if err != nil {
		m.logger.Warn("credential store unavailable during hydration",
			zap.String("domain", string(d)),
			zap.Error(err),
		)
		return logged, hydrateStoreError
	}
	if !cred.Stored {
		return logged, hydrateAbsent
	}

	claims, err := m.decoder.Decode(cred.Token)
	if err != nil {
		m.logger.Warn("discarding undecodable credential",
			zap.String("domain", string(d)),
			zap.Error(err),
		)
		if cerr := m.store.Clear(ctx, d); cerr != nil {
			m.logger.Warn("failed to clear undecodable credential",
				zap.String("domain", string(d)),
				zap.Error(cerr),
			)
		}
		return logged, hydrateDecodeFailed
	}

	next := domain.SessionState{
		Domain:          d,
		IsAuthenticated: true,
		SubjectID:       claims.SubjectID,
		Token:           cred.Token,
		AccountStatus:   domain.AccountStatusUnknown,
	}
	if d == domain.DomainUser {
		next.IsVendor = auth.VendorFromClaims(claims) || m.persistedVendorFlag(ctx)
	}
	return next, hydrateAuthenticated
}

func (m *Manager) persistedVendorFlag(ctx context.Context) bool {
	v, ok, err := m.store.VendorFlag(ctx)
	if err != nil {
		m.logger.Warn("failed to read vendor flag", zap.Error(err))
		return false
	}
	return ok && v
}
