package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront/internal/domain"
)

// refineAsync fetches account status and role flags for a freshly
// authenticated user session. Results are applied only while the session
// epoch is unchanged; anything else is a stale answer and is dropped.
// Until then the status stays Unknown, which guards treat as not blocked.
func (m *Manager) refineAsync(s *slice, epoch uint64, st domain.SessionState) {
	if s.domain != domain.DomainUser || m.api == nil {
		return
	}

	m.bg.Add(1)
	go func() {
		defer m.bg.Done()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.refineStatus(s, epoch, st)
		}()
		go func() {
			defer wg.Done()
			m.refineRoles(s, epoch, st)
		}()
		wg.Wait()
	}()
}

func (m *Manager) refineStatus(s *slice, epoch uint64, st domain.SessionState) {
	ctx, cancel := context.WithTimeout(m.baseCtx, m.refineTimeout)
	defer cancel()

	status, err := m.api.FetchAccountStatus(ctx, st.SubjectID, st.Token)
	if err != nil {
		m.logger.Warn("account status fetch failed", zap.String("subject", st.SubjectID), zap.Error(err))
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur, curEpoch := s.current()
	if curEpoch != epoch || !cur.IsAuthenticated {
		m.logger.Debug("dropping stale account status", zap.String("subject", st.SubjectID))
		return
	}
	switch status {
	case domain.AccountStatusBlocked:
		m.blockLocked(ctx, s, cur, "status_blocked")
	case domain.AccountStatusActive:
		if cur.AccountStatus != domain.AccountStatusActive {
			cur.AccountStatus = domain.AccountStatusActive
			m.publish(ctx, s, "status", cur, false)
		}
	}
}

func (m *Manager) refineRoles(s *slice, epoch uint64, st domain.SessionState) {
	ctx, cancel := context.WithTimeout(m.baseCtx, m.refineTimeout)
	defer cancel()

	flags, err := m.api.FetchRoleFlags(ctx, st.SubjectID, st.Token)
	if err != nil {
		m.logger.Warn("role flags fetch failed", zap.String("subject", st.SubjectID), zap.Error(err))
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur, curEpoch := s.current()
	if curEpoch != epoch || !cur.IsAuthenticated {
		m.logger.Debug("dropping stale role flags", zap.String("subject", st.SubjectID))
		return
	}
	m.applyVendorLocked(ctx, s, cur, flags.IsVendor, "role_flags")
}

// RefreshRoleFlags re-reads the vendor flag of the signed-in user, e.g. after
// a vendor request was approved.
func (m *Manager) RefreshRoleFlags(ctx context.Context) (domain.SessionState, error) {
	s, err := m.sliceFor(domain.DomainUser)
	if err != nil {
		return domain.SessionState{}, err
	}

	st, epoch := s.current()
	if !st.IsAuthenticated {
		return st, ErrNotAuthenticated
	}
	if m.api == nil {
		return st, ErrRemoteUnavailable
	}

	flags, err := m.api.FetchRoleFlags(ctx, st.SubjectID, st.Token)
	if err != nil {
		return st, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur, curEpoch := s.current()
	if curEpoch != epoch || !cur.IsAuthenticated {
		return cur, nil
	}
	return m.applyVendorLocked(ctx, s, cur, flags.IsVendor, "role_flags"), nil
}

// applyVendorLocked sets the vendor flag. Callers hold s.writeMu.
func (m *Manager) applyVendorLocked(ctx context.Context, s *slice, cur domain.SessionState, isVendor bool, transition string) domain.SessionState {
	if err := m.store.SetVendorFlag(ctx, isVendor); err != nil {
		m.logger.Warn("failed to persist vendor flag", zap.Error(err))
	}
	if cur.IsVendor == isVendor {
		return cur
	}
	cur.IsVendor = isVendor
	m.publish(ctx, s, transition, cur, false)
	return cur
}

// blockLocked marks the session blocked and destroys its credential. Callers hold s.writeMu.
func (m *Manager) blockLocked(ctx context.Context, s *slice, cur domain.SessionState, transition string) {
	if err := m.store.Clear(ctx, s.domain); err != nil {
		m.logger.Warn("failed to clear blocked credential", zap.String("domain", string(s.domain)), zap.Error(err))
	}
	cur.AccountStatus = domain.AccountStatusBlocked
	m.publish(ctx, s, transition, cur, true)
	m.logger.Info("account blocked", zap.String("domain", string(s.domain)), zap.String("subject", cur.SubjectID))
}
