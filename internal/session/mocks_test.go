package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/storefront/internal/credential"
	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/remote"
	"github.com/spec-kit/storefront/internal/session"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) Login(ctx context.Context, d domain.Domain, creds remote.Credentials) (remote.LoginResult, error) {
	args := m.Called(ctx, d, creds)
	return args.Get(0).(remote.LoginResult), args.Error(1)
}

func (m *MockAPI) Logout(ctx context.Context, d domain.Domain, token string) error {
	args := m.Called(ctx, d, token)
	return args.Error(0)
}

func (m *MockAPI) FetchAccountStatus(ctx context.Context, subjectID, token string) (domain.AccountStatus, error) {
	args := m.Called(ctx, subjectID, token)
	return args.Get(0).(domain.AccountStatus), args.Error(1)
}

func (m *MockAPI) FetchRoleFlags(ctx context.Context, subjectID, token string) (remote.RoleFlags, error) {
	args := m.Called(ctx, subjectID, token)
	return args.Get(0).(remote.RoleFlags), args.Error(1)
}

// gatedKV blocks reads of one key until released.
type gatedKV struct {
	*credential.MemoryKV
	key     string
	release chan struct{}
}

func (g *gatedKV) Get(ctx context.Context, key string) (string, bool, error) {
	if key == g.key {
		select {
		case <-g.release:
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
	}
	return g.MemoryKV.Get(ctx, key)
}

type fixture struct {
	api     *MockAPI
	kv      *credential.MemoryKV
	store   *credential.Store
	manager *session.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	kv := credential.NewMemoryKV()
	return newFixtureWithKV(t, kv, kv)
}

func newFixtureWithKV(t *testing.T, mem *credential.MemoryKV, kv credential.KV) *fixture {
	t.Helper()
	api := &MockAPI{}
	store := credential.NewStore(kv, "test")
	m := session.NewManager(session.Dependencies{
		Store:         store,
		API:           api,
		LogoutTimeout: 100 * time.Millisecond,
		RefineTimeout: time.Second,
	})
	t.Cleanup(m.Close)
	return &fixture{api: api, kv: mem, store: store, manager: m}
}

// reopen simulates a reload: a fresh manager over the same persisted store.
func (f *fixture) reopen(t *testing.T) *session.Manager {
	t.Helper()
	m := session.NewManager(session.Dependencies{Store: f.store, API: f.api})
	t.Cleanup(m.Close)
	return m
}

func (f *fixture) ignoreRefinement() {
	f.api.On("FetchAccountStatus", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.AccountStatusUnknown, context.DeadlineExceeded).Maybe()
	f.api.On("FetchRoleFlags", mock.Anything, mock.Anything, mock.Anything).
		Return(remote.RoleFlags{}, context.DeadlineExceeded).Maybe()
}

func token(t *testing.T, sub string, extra jwt.MapClaims) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": sub,
		"iat": time.Now().Add(-time.Minute).Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("remote-secret"))
	require.NoError(t, err)
	return tok
}

// recorder collects published states.
type recorder struct {
	mu     sync.Mutex
	states []domain.SessionState
}

func (r *recorder) add(s domain.SessionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) all() []domain.SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.SessionState(nil), r.states...)
}
