// Package session owns the authorization state of both identity domains.
//
// Each domain has its own state slice with a single writer path at a time:
// hydration, login, logout, guard cleanup, account signals and the deferred
// status/role refinement are serialised per domain, and every transition is
// published to subscribers in the order it was applied. Readers always see
// the latest published snapshot.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront/internal/auth"
	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/events"
	"github.com/spec-kit/storefront/internal/observability"
	"github.com/spec-kit/storefront/internal/remote"
)

// CredentialStore is the persisted side of a session.
type CredentialStore interface {
	Load(ctx context.Context, d domain.Domain) (domain.Credential, error)
	Save(ctx context.Context, d domain.Domain, token string) error
	Clear(ctx context.Context, d domain.Domain) error
	VendorFlag(ctx context.Context) (value bool, ok bool, err error)
	SetVendorFlag(ctx context.Context, v bool) error
}

// Dependencies bundles collaborators of the Manager.
type Dependencies struct {
	Store   CredentialStore
	API     remote.API
	Decoder *auth.Decoder
	Events  events.Dispatcher
	Logger  *zap.Logger
	Metrics *observability.Metrics

	// LogoutTimeout bounds the remote invalidation call.
	LogoutTimeout time.Duration
	// RefineTimeout bounds each deferred status/role fetch.
	RefineTimeout time.Duration
}

// Manager is the process-wide authorization state.
type Manager struct {
	slices  map[domain.Domain]*slice
	store   CredentialStore
	api     remote.API
	decoder *auth.Decoder
	events  events.Dispatcher
	logger  *zap.Logger
	metrics *observability.Metrics

	logoutTimeout time.Duration
	refineTimeout time.Duration

	baseCtx context.Context
	cancel  context.CancelFunc
	bg      sync.WaitGroup
}

type slice struct {
	domain domain.Domain

	// writeMu serialises transitions and their publication.
	writeMu sync.Mutex

	mu    sync.RWMutex
	state domain.SessionState
	epoch uint64

	ready     chan struct{}
	readyOnce sync.Once
}

// NewManager builds a Manager with both domains logged out and not yet ready.
func NewManager(deps Dependencies) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	decoder := deps.Decoder
	if decoder == nil {
		decoder = auth.NewDecoder()
	}
	dispatcher := deps.Events
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher(nil)
	}
	logoutTimeout := deps.LogoutTimeout
	if logoutTimeout <= 0 {
		logoutTimeout = 5 * time.Second
	}
	refineTimeout := deps.RefineTimeout
	if refineTimeout <= 0 {
		refineTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		slices:        make(map[domain.Domain]*slice, len(domain.Domains)),
		store:         deps.Store,
		api:           deps.API,
		decoder:       decoder,
		events:        dispatcher,
		logger:        logger.Named("session"),
		metrics:       deps.Metrics,
		logoutTimeout: logoutTimeout,
		refineTimeout: refineTimeout,
		baseCtx:       ctx,
		cancel:        cancel,
	}
	for _, d := range domain.Domains {
		m.slices[d] = &slice{
			domain: d,
			state:  domain.LoggedOut(d),
			ready:  make(chan struct{}),
		}
	}
	return m
}

// State returns a snapshot of the latest published state of d.
func (m *Manager) State(d domain.Domain) domain.SessionState {
	s, ok := m.slices[d]
	if !ok {
		return domain.LoggedOut(d)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Role returns the effective role of the user domain.
func (m *Manager) Role() domain.Role {
	return auth.ResolveRole(m.State(domain.DomainUser))
}

// Ready is closed once d has published its first state.
func (m *Manager) Ready(d domain.Domain) <-chan struct{} {
	s, ok := m.slices[d]
	if !ok {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.ready
}

// IsReady reports whether d has been hydrated.
func (m *Manager) IsReady(d domain.Domain) bool {
	select {
	case <-m.Ready(d):
		return true
	default:
		return false
	}
}

// Subscribe calls listener with every state published for d. Listeners run
// synchronously on the writer path and must not call back into Manager writers.
func (m *Manager) Subscribe(d domain.Domain, listener func(domain.SessionState)) (unsubscribe func()) {
	return m.events.Subscribe(events.EventSessionChanged, func(_ context.Context, e events.Event) error {
		if e.Domain != d {
			return nil
		}
		if p, ok := e.Payload.(events.SessionChangedPayload); ok {
			listener(p.State)
		}
		return nil
	})
}

// Wait blocks until in-flight background refinements have finished.
func (m *Manager) Wait() {
	m.bg.Wait()
}

// Close cancels background refinements and waits for them.
func (m *Manager) Close() {
	m.cancel()
	m.bg.Wait()
}

func (m *Manager) sliceFor(d domain.Domain) (*slice, error) {
	s, ok := m.slices[d]
	if !ok {
		return nil, ErrUnknownDomain
	}
	return s, nil
}

// publish installs next as the state of s. Callers hold s.writeMu.
func (m *Manager) publish(ctx context.Context, s *slice, transition string, next domain.SessionState, bumpEpoch bool) uint64 {
	next.Domain = s.domain
	if !next.Consistent() {
		m.logger.Error("refusing inconsistent session state",
			zap.String("domain", string(s.domain)),
			zap.String("transition", transition),
		)
		next = domain.LoggedOut(s.domain)
		bumpEpoch = true
	}

	s.mu.Lock()
	s.state = next
	if bumpEpoch {
		s.epoch++
	}
	epoch := s.epoch
	s.mu.Unlock()

	s.readyOnce.Do(func() { close(s.ready) })

	payload := events.SessionChangedPayload{Transition: transition, State: next}
	if s.domain == domain.DomainUser {
		payload.Role = auth.ResolveRole(next)
	}
	_ = m.events.Publish(ctx, events.Event{
		Type:      events.EventSessionChanged,
		Domain:    s.domain,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})

	m.logger.Debug("session transition",
		zap.String("domain", string(s.domain)),
		zap.String("transition", transition),
		zap.Bool("authenticated", next.IsAuthenticated),
		zap.String("account_status", string(next.AccountStatus)),
		zap.Uint64("epoch", epoch),
	)
	return epoch
}

// current reads state and epoch.
func (s *slice) current() (domain.SessionState, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.epoch
}

// loggedOutFrom is the resting state after leaving prev. Blocked survives until a fresh login.
func loggedOutFrom(prev domain.SessionState) domain.SessionState {
	next := domain.LoggedOut(prev.Domain)
	if prev.Blocked() {
		next.AccountStatus = domain.AccountStatusBlocked
	}
	return next
}
