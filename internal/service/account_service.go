package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/storefront/internal/auth"
	"github.com/spec-kit/storefront/internal/config"
	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/repository"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenRevoked is returned for a token that was logged out.
	ErrTokenRevoked = errors.New("token revoked")
)

// SignalPublisher emits account signals to connected storefronts.
type SignalPublisher interface {
	Publish(ctx context.Context, sig domain.AccountSignal) error
}

// AccountService coordinates login, logout and account administration of the
// development remote API.
type AccountService struct {
	accounts   repository.AccountRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	signals    SignalPublisher
	logger     *zap.Logger

	mu      sync.Mutex
	revoked map[string]time.Time
}

// AccountDependencies encapsulates collaborators of the account service.
type AccountDependencies struct {
	Accounts repository.AccountRepository
	Signals  SignalPublisher
	Logger   *zap.Logger
}

// NewAccountService builds the service.
func NewAccountService(cfg config.DevAPIConfig, deps AccountDependencies) *AccountService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &AccountService{
		accounts:   deps.Accounts,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cost,
		signals:    deps.Signals,
		logger:     logger.Named("accounts"),
		revoked:    make(map[string]time.Time),
	}
}

// TokenManager exposes the token manager.
func (s *AccountService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Seed creates the configured accounts that do not exist yet. Entries have the
// form domain:email:password[:vendor].
func (s *AccountService) Seed(ctx context.Context, entries []string) error {
	for _, entry := range entries {
		parts := strings.Split(entry, ":")
		if len(parts) < 3 || len(parts) > 4 {
			return fmt.Errorf("invalid account entry %q", entry)
		}
		d, ok := domain.ParseDomain(parts[0])
		if !ok {
			return fmt.Errorf("invalid account domain %q", parts[0])
		}
		isVendor := len(parts) == 4 && parts[3] == "vendor"

		if _, err := s.accounts.GetByEmail(ctx, d, parts[1]); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrAccountNotFound) {
			return err
		}

		if _, err := s.Register(ctx, d, parts[1], parts[2], isVendor); err != nil {
			return err
		}
		s.logger.Info("seeded account", zap.String("domain", string(d)), zap.String("email", parts[1]))
	}
	return nil
}

// Register creates an active account.
func (s *AccountService) Register(ctx context.Context, d domain.Domain, email, password string, isVendor bool) (*domain.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, err
	}
	account := &domain.Account{
		ID:           uuid.NewString(),
		Domain:       d,
		Email:        email,
		PasswordHash: string(hash),
		Status:       domain.AccountStatusActive,
		IsVendor:     isVendor && d == domain.DomainUser,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Login authenticates an account of d. Blocked accounts still receive a token
// together with their status; refusing them is the caller's decision.
func (s *AccountService) Login(ctx context.Context, d domain.Domain, email, password string) (*domain.Account, string, time.Time, error) {
	account, err := s.accounts.GetByEmail(ctx, d, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, "", time.Time{}, ErrInvalidCredentials
		}
		return nil, "", time.Time{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	token, exp, err := s.tokenMgr.GenerateToken(account.ID, d, account.Role() == domain.RoleVendor)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return account, token, exp, nil
}

// Authenticate validates a bearer token that has not been logged out.
func (s *AccountService) Authenticate(token string) (*auth.Claims, error) {
	claims, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	_, revoked := s.revoked[claims.ID]
	s.mu.Unlock()
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *AccountService) Logout(_ context.Context, claims *auth.Claims) {
	expires := time.Now().Add(time.Hour)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, exp := range s.revoked {
		if exp.Before(now) {
			delete(s.revoked, id)
		}
	}
	s.revoked[claims.ID] = expires
}

// Status returns the standing of an account.
func (s *AccountService) Status(ctx context.Context, id string) (domain.AccountStatus, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return domain.AccountStatusUnknown, err
	}
	return account.Status, nil
}

// IsVendor returns the vendor flag of an account.
func (s *AccountService) IsVendor(ctx context.Context, id string) (bool, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return account.Role() == domain.RoleVendor, nil
}

// Block marks an account blocked and notifies storefronts.
func (s *AccountService) Block(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account.Status == domain.AccountStatusBlocked {
		return account, nil
	}
	account.Status = domain.AccountStatusBlocked
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}
	s.publish(ctx, domain.SignalAccountBlocked, account)
	return account, nil
}

// SetVendor approves or revokes the vendor role of a user account.
func (s *AccountService) SetVendor(ctx context.Context, id string, isVendor bool) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account.Domain != domain.DomainUser {
		return nil, fmt.Errorf("%s accounts have no vendor role", account.Domain)
	}
	if account.IsVendor == isVendor {
		return account, nil
	}
	account.IsVendor = isVendor
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}
	sig := domain.SignalVendorRevoked
	if isVendor {
		sig = domain.SignalVendorApproved
	}
	s.publish(ctx, sig, account)
	return account, nil
}

func (s *AccountService) publish(ctx context.Context, t domain.SignalType, account *domain.Account) {
	if s.signals == nil {
		return
	}
	sig := domain.AccountSignal{ID: uuid.NewString(), Type: t, Domain: account.Domain, SubjectID: account.ID}
	if err := s.signals.Publish(ctx, sig); err != nil {
		s.logger.Warn("failed to publish account signal",
			zap.String("type", string(t)),
			zap.String("subject", account.ID),
			zap.Error(err),
		)
	}
}
