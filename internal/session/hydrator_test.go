package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/storefront/internal/credential"
	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/remote"
)

func TestHydrateWithoutCredentialIsLoggedOut(t *testing.T) {
	f := newFixture(t)

	for _, d := range domain.Domains {
		assert.False(t, f.manager.IsReady(d))
	}

	f.manager.Boot(context.Background())

	for _, d := range domain.Domains {
		assert.True(t, f.manager.IsReady(d))
		assert.Equal(t, domain.LoggedOut(d), f.manager.State(d))
	}
	f.api.AssertNotCalled(t, "FetchAccountStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestHydrateUndecodableTokenMatchesAbsence(t *testing.T) {
	expired := token(t, "u-1", jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()})
	bad := []string{"garbage", "a.b", "eyJhbGciOiJIUzI1NiJ9.bm9wZQ.sig", expired}

	for _, d := range domain.Domains {
		absent := newFixture(t).manager.Hydrate(context.Background(), d)

		for _, tok := range bad {
			f := newFixture(t)
			require.NoError(t, f.store.Save(context.Background(), d, tok))

			got := f.manager.Hydrate(context.Background(), d)
			assert.Equal(t, absent, got, "token %q in %s", tok, d)
			assert.Equal(t, absent, f.manager.State(d))

			cred, err := f.store.Load(context.Background(), d)
			require.NoError(t, err)
			assert.False(t, cred.Stored, "undecodable credential is destroyed")
		}
	}
}

func TestHydrateStoreFailureIsLoggedOut(t *testing.T) {
	mem := credential.NewMemoryKV()
	f := newFixtureWithKV(t, mem, failingKV{mem})

	got := f.manager.Hydrate(context.Background(), domain.DomainAdmin)
	assert.Equal(t, domain.LoggedOut(domain.DomainAdmin), got)
	assert.True(t, f.manager.IsReady(domain.DomainAdmin))
}

func TestHydrateAdminDoesNotRefine(t *testing.T) {
	f := newFixture(t)
	tok := token(t, "admin-1", nil)
	require.NoError(t, f.store.Save(context.Background(), domain.DomainAdmin, tok))

	got := f.manager.Hydrate(context.Background(), domain.DomainAdmin)
	f.manager.Wait()

	assert.True(t, got.IsAuthenticated)
	assert.Equal(t, "admin-1", got.SubjectID)
	assert.Equal(t, tok, got.Token)
	assert.Equal(t, domain.AccountStatusUnknown, got.AccountStatus)
	f.api.AssertNotCalled(t, "FetchAccountStatus", mock.Anything, mock.Anything, mock.Anything)
	f.api.AssertNotCalled(t, "FetchRoleFlags", mock.Anything, mock.Anything, mock.Anything)
}

func TestHydrateUserRefinesStatusAndRole(t *testing.T) {
	f := newFixture(t)
	tok := token(t, "u-1", nil)
	require.NoError(t, f.store.Save(context.Background(), domain.DomainUser, tok))

	f.api.On("FetchAccountStatus", mock.Anything, "u-1", tok).Return(domain.AccountStatusActive, nil).Once()
	f.api.On("FetchRoleFlags", mock.Anything, "u-1", tok).Return(remote.RoleFlags{IsVendor: true}, nil).Once()

	got := f.manager.Hydrate(context.Background(), domain.DomainUser)
	assert.Equal(t, domain.AccountStatusUnknown, got.AccountStatus, "status is unknown until the fetch lands")
	assert.False(t, got.IsVendor)

	f.manager.Wait()
	st := f.manager.State(domain.DomainUser)
	assert.Equal(t, domain.AccountStatusActive, st.AccountStatus)
	assert.True(t, st.IsVendor)
	assert.Equal(t, domain.RoleVendor, f.manager.Role())

	flag, ok, err := f.store.VendorFlag(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, flag)
	f.api.AssertExpectations(t)
}

func TestHydrateVendorFlagSources(t *testing.T) {
	t.Run("claims", func(t *testing.T) {
		f := newFixture(t)
		f.ignoreRefinement()
		require.NoError(t, f.store.Save(context.Background(), domain.DomainUser, token(t, "u-1", jwt.MapClaims{"isVendor": true})))

		assert.True(t, f.manager.Hydrate(context.Background(), domain.DomainUser).IsVendor)
	})

	t.Run("persisted side channel", func(t *testing.T) {
		f := newFixture(t)
		f.ignoreRefinement()
		require.NoError(t, f.store.Save(context.Background(), domain.DomainUser, token(t, "u-1", nil)))
		require.NoError(t, f.store.SetVendorFlag(context.Background(), true))

		assert.True(t, f.manager.Hydrate(context.Background(), domain.DomainUser).IsVendor)
	})

	t.Run("neither", func(t *testing.T) {
		f := newFixture(t)
		f.ignoreRefinement()
		require.NoError(t, f.store.Save(context.Background(), domain.DomainUser, token(t, "u-1", nil)))

		st := f.manager.Hydrate(context.Background(), domain.DomainUser)
		assert.False(t, st.IsVendor)
		f.manager.Wait()
		assert.Equal(t, domain.RoleUser, f.manager.Role(), "failed fetches leave the lower role")
	})
}

func TestStaleRefinementIsDropped(t *testing.T) {
	f := newFixture(t)
	tok := token(t, "u-1", nil)
	require.NoError(t, f.store.Save(context.Background(), domain.DomainUser, tok))

	release := make(chan struct{})
	started := make(chan struct{})
	f.api.On("FetchAccountStatus", mock.Anything, "u-1", tok).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(domain.AccountStatusBlocked, nil).Once()
	f.api.On("FetchRoleFlags", mock.Anything, "u-1", tok).Return(remote.RoleFlags{IsVendor: true}, errors.New("down")).Once()
	f.api.On("Logout", mock.Anything, domain.DomainUser, tok).Return(nil).Once()

	f.manager.Hydrate(context.Background(), domain.DomainUser)
	<-started
	f.manager.Logout(context.Background(), domain.DomainUser)
	close(release)
	f.manager.Wait()

	assert.Equal(t, domain.LoggedOut(domain.DomainUser), f.manager.State(domain.DomainUser))
	f.api.AssertExpectations(t)
}

func TestBootDomainsDoNotBlockEachOther(t *testing.T) {
	mem := credential.NewMemoryKV()
	gate := &gatedKV{MemoryKV: mem, key: "test:admin:token", release: make(chan struct{})}
	f := newFixtureWithKV(t, mem, gate)
	f.ignoreRefinement()
	require.NoError(t, f.store.Save(context.Background(), domain.DomainUser, token(t, "u-1", nil)))

	done := make(chan struct{})
	go func() {
		f.manager.Boot(context.Background())
		close(done)
	}()

	select {
	case <-f.manager.Ready(domain.DomainUser):
	case <-time.After(2 * time.Second):
		t.Fatal("user hydration waited on admin")
	}
	assert.False(t, f.manager.IsReady(domain.DomainAdmin))
	assert.True(t, f.manager.State(domain.DomainUser).IsAuthenticated)

	close(gate.release)
	<-done
	assert.True(t, f.manager.IsReady(domain.DomainAdmin))
}

type failingKV struct {
	*credential.MemoryKV
}

func (failingKV) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("connection refused")
}
