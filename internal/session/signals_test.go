package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/storefront/internal/credential"
	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/events"
	"github.com/spec-kit/storefront/internal/remote"
	"github.com/spec-kit/storefront/internal/session"
)

func blockedSignal(sub string) domain.AccountSignal {
	return domain.AccountSignal{Type: domain.SignalAccountBlocked, Domain: domain.DomainUser, SubjectID: sub}
}

func TestBlockedSignalIsTerminalUntilLogin(t *testing.T) {
	f := newFixture(t)
	f.ignoreRefinement()
	f.manager.Boot(context.Background())
	login(t, f, domain.DomainUser, "u-1")

	require.True(t, f.manager.HandleSignal(context.Background(), blockedSignal("u-1")))
	st := f.manager.State(domain.DomainUser)
	assert.True(t, st.Blocked())
	assert.True(t, st.Consistent())

	cred, err := f.store.Load(context.Background(), domain.DomainUser)
	require.NoError(t, err)
	assert.False(t, cred.Stored, "blocked credential is destroyed")

	require.NoError(t, f.manager.ClearCredential(context.Background(), domain.DomainUser))
	st = f.manager.State(domain.DomainUser)
	assert.False(t, st.IsAuthenticated)
	assert.True(t, st.Blocked(), "blocked survives guard cleanup")

	f.manager.Logout(context.Background(), domain.DomainUser)
	assert.True(t, f.manager.State(domain.DomainUser).Blocked(), "blocked survives logout")

	login(t, f, domain.DomainUser, "u-1")
	assert.False(t, f.manager.State(domain.DomainUser).Blocked(), "a fresh login leaves blocked")
}

func TestHydrateKeepsBlockedSession(t *testing.T) {
	f := newFixture(t)
	f.ignoreRefinement()
	f.manager.Boot(context.Background())
	login(t, f, domain.DomainUser, "u-1")
	require.True(t, f.manager.HandleSignal(context.Background(), blockedSignal("u-1")))

	st := f.manager.Hydrate(context.Background(), domain.DomainUser)
	assert.False(t, st.IsAuthenticated)
	assert.True(t, st.Blocked())
	assert.True(t, f.manager.State(domain.DomainUser).Blocked())

	cred, err := f.store.Load(context.Background(), domain.DomainUser)
	require.NoError(t, err)
	assert.False(t, cred.Stored)
}

func TestHydrateKeepsBlockedSessionWhenClearFails(t *testing.T) {
	mem := credential.NewMemoryKV()
	f := newFixtureWithKV(t, mem, undeletableKV{mem})
	f.ignoreRefinement()
	f.manager.Boot(context.Background())
	login(t, f, domain.DomainUser, "u-1")
	require.True(t, f.manager.HandleSignal(context.Background(), blockedSignal("u-1")))

	cred, err := f.store.Load(context.Background(), domain.DomainUser)
	require.NoError(t, err)
	require.True(t, cred.Stored, "credential survives the failed clear")

	st := f.manager.Hydrate(context.Background(), domain.DomainUser)
	assert.False(t, st.IsAuthenticated)
	assert.Empty(t, st.SubjectID)
	assert.True(t, st.Blocked())
	assert.True(t, st.Consistent())
}

func TestRefinementCannotUnblock(t *testing.T) {
	f := newFixture(t)
	f.manager.Boot(context.Background())

	release := make(chan struct{})
	started := make(chan struct{})
	f.api.On("FetchAccountStatus", mock.Anything, "u-1", mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(domain.AccountStatusActive, nil).Once()
	f.api.On("FetchRoleFlags", mock.Anything, "u-1", mock.Anything).Return(remote.RoleFlags{}, nil).Once()

	login(t, f, domain.DomainUser, "u-1")
	<-started
	f.manager.HandleSignal(context.Background(), blockedSignal("u-1"))
	close(release)
	f.manager.Wait()

	assert.True(t, f.manager.State(domain.DomainUser).Blocked())
}

func TestSignalsForOtherSubjectsAreIgnored(t *testing.T) {
	f := newFixture(t)
	f.ignoreRefinement()
	f.manager.Boot(context.Background())

	assert.False(t, f.manager.HandleSignal(context.Background(), blockedSignal("u-1")), "logged out")

	login(t, f, domain.DomainUser, "u-1")
	assert.False(t, f.manager.HandleSignal(context.Background(), blockedSignal("u-2")))
	assert.False(t, f.manager.HandleSignal(context.Background(), domain.AccountSignal{Type: "profile_updated", SubjectID: "u-1"}))
	assert.False(t, f.manager.State(domain.DomainUser).Blocked())
}

func TestVendorSignals(t *testing.T) {
	f := newFixture(t)
	f.ignoreRefinement()
	f.manager.Boot(context.Background())
	login(t, f, domain.DomainUser, "u-1")
	assert.Equal(t, domain.RoleUser, f.manager.Role())

	require.True(t, f.manager.HandleSignal(context.Background(), domain.AccountSignal{Type: domain.SignalVendorApproved, SubjectID: "u-1"}))
	assert.Equal(t, domain.RoleVendor, f.manager.Role())
	flag, ok, err := f.store.VendorFlag(context.Background())
	require.NoError(t, err)
	assert.True(t, ok && flag)

	assert.False(t, f.manager.HandleSignal(context.Background(), domain.AccountSignal{Type: domain.SignalVendorApproved, SubjectID: "u-1"}), "no change")
	require.True(t, f.manager.HandleSignal(context.Background(), domain.AccountSignal{Type: domain.SignalVendorRevoked, SubjectID: "u-1"}))
	assert.Equal(t, domain.RoleUser, f.manager.Role())
}

func TestRefreshRoleFlags(t *testing.T) {
	f := newFixture(t)
	f.manager.Boot(context.Background())

	_, err := f.manager.RefreshRoleFlags(context.Background())
	require.ErrorIs(t, err, session.ErrNotAuthenticated)

	f.api.On("FetchAccountStatus", mock.Anything, "u-1", mock.Anything).Return(domain.AccountStatusActive, nil).Once()
	f.api.On("FetchRoleFlags", mock.Anything, "u-1", mock.Anything).Return(remote.RoleFlags{IsVendor: false}, nil).Once()
	login(t, f, domain.DomainUser, "u-1")
	f.manager.Wait()

	f.api.On("FetchRoleFlags", mock.Anything, "u-1", mock.Anything).Return(remote.RoleFlags{IsVendor: true}, nil).Once()
	st, err := f.manager.RefreshRoleFlags(context.Background())
	require.NoError(t, err)
	assert.True(t, st.IsVendor)
	assert.Equal(t, domain.RoleVendor, f.manager.Role())
}

func TestConcurrentWritersKeepStateConsistent(t *testing.T) {
	f := newFixture(t)
	f.ignoreRefinement()
	f.api.On("Logout", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	f.manager.Boot(context.Background())

	var inconsistent int
	var mu sync.Mutex
	f.manager.Subscribe(domain.DomainUser, func(s domain.SessionState) {
		if !s.Consistent() {
			mu.Lock()
			inconsistent++
			mu.Unlock()
		}
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(4)
		go func() {
			defer wg.Done()
			login(t, f, domain.DomainUser, "u-1")
		}()
		go func() {
			defer wg.Done()
			f.manager.Logout(context.Background(), domain.DomainUser)
		}()
		go func() {
			defer wg.Done()
			f.manager.HandleSignal(context.Background(), blockedSignal("u-1"))
		}()
		go func() {
			defer wg.Done()
			f.manager.Hydrate(context.Background(), domain.DomainUser)
		}()
	}
	wg.Wait()
	f.manager.Wait()

	assert.Zero(t, inconsistent)
	assert.True(t, f.manager.State(domain.DomainUser).Consistent())
}

func TestListenForSignals(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	kv := credential.NewMemoryKV()
	api := &MockAPI{}
	api.On("FetchAccountStatus", mock.Anything, mock.Anything, mock.Anything).Return(domain.AccountStatusUnknown, context.Canceled).Maybe()
	api.On("FetchRoleFlags", mock.Anything, mock.Anything, mock.Anything).Return(remote.RoleFlags{}, context.Canceled).Maybe()
	m := session.NewManager(session.Dependencies{Store: credential.NewStore(kv, "test"), API: api, Events: dispatcher})
	t.Cleanup(m.Close)

	stop := m.ListenForSignals()
	_, err := m.Authenticate(context.Background(), domain.DomainUser, remote.LoginResult{SubjectID: "u-1", Token: token(t, "u-1", nil)})
	require.NoError(t, err)

	_ = dispatcher.Publish(context.Background(), events.Event{Type: events.EventAccountSignal, Payload: domain.AccountSignal{Type: domain.SignalVendorApproved, SubjectID: "u-1"}})
	assert.True(t, m.State(domain.DomainUser).IsVendor)

	stop()
	_ = dispatcher.Publish(context.Background(), events.Event{Type: events.EventAccountSignal, Payload: blockedSignal("u-1")})
	assert.False(t, m.State(domain.DomainUser).Blocked())
}

type undeletableKV struct {
	*credential.MemoryKV
}

func (undeletableKV) Delete(context.Context, ...string) error {
	return errors.New("read-only replica")
}
