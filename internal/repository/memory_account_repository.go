package repository

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/storefront/internal/domain"
)

// ErrDuplicateAccount is returned when an email is already registered in a domain.
var ErrDuplicateAccount = errors.New("account already exists")

type memoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
}

// NewMemoryAccountRepository returns a process-local implementation.
func NewMemoryAccountRepository() AccountRepository {
	return &memoryAccountRepository{accounts: make(map[string]domain.Account)}
}

func (r *memoryAccountRepository) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[account.ID]; ok {
		return ErrDuplicateAccount
	}
	for _, a := range r.accounts {
		if a.Domain == account.Domain && strings.EqualFold(a.Email, account.Email) {
			return ErrDuplicateAccount
		}
	}
	now := time.Now().UTC()
	account.CreatedAt, account.UpdatedAt = now, now
	r.accounts[account.ID] = *account
	return nil
}

func (r *memoryAccountRepository) Update(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[account.ID]; !ok {
		return ErrAccountNotFound
	}
	account.UpdatedAt = time.Now().UTC()
	r.accounts[account.ID] = *account
	return nil
}

func (r *memoryAccountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &a, nil
}

func (r *memoryAccountRepository) GetByEmail(_ context.Context, d domain.Domain, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts {
		if a.Domain == d && strings.EqualFold(a.Email, email) {
			return &a, nil
		}
	}
	return nil, ErrAccountNotFound
}
