// Package credential persists bearer credentials per identity domain.
//
// Entries live under fixed domain-scoped names in a durable key-value backend
// and are treated as opaque strings.
package credential

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spec-kit/storefront/internal/domain"
)

// ErrEmptyToken is returned when saving an empty credential.
var ErrEmptyToken = errors.New("credential: empty token")

// KV is the durable key-value backend.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}

const vendorFlag = "is_vendor"

// Store maps domains onto backend keys.
type Store struct {
	kv        KV
	namespace string
}

// NewStore wraps kv. An empty namespace defaults to "storefront".
func NewStore(kv KV, namespace string) *Store {
	if namespace == "" {
		namespace = "storefront"
	}
	return &Store{kv: kv, namespace: namespace}
}

// TokenKey is the fixed name holding the token of d.
func (s *Store) TokenKey(d domain.Domain) string {
	return s.key(d, "token")
}

func (s *Store) key(d domain.Domain, name string) string {
	return fmt.Sprintf("%s:%s:%s", s.namespace, d, name)
}

// Load reads the credential of d. Absence is reported with Stored=false and no error.
func (s *Store) Load(ctx context.Context, d domain.Domain) (domain.Credential, error) {
	token, ok, err := s.kv.Get(ctx, s.TokenKey(d))
	if err != nil {
		return domain.Credential{Domain: d}, fmt.Errorf("load %s credential: %w", d, err)
	}
	if !ok || token == "" {
		return domain.Credential{Domain: d}, nil
	}
	return domain.Credential{Domain: d, Token: token, Stored: true}, nil
}

// Save persists token for d.
func (s *Store) Save(ctx context.Context, d domain.Domain, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if err := s.kv.Set(ctx, s.TokenKey(d), token); err != nil {
		return fmt.Errorf("save %s credential: %w", d, err)
	}
	return nil
}

// Clear removes the credential of d together with its side-channel flags.
func (s *Store) Clear(ctx context.Context, d domain.Domain) error {
	keys := []string{s.TokenKey(d)}
	if d == domain.DomainUser {
		keys = append(keys, s.key(d, vendorFlag))
	}
	if err := s.kv.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("clear %s credential: %w", d, err)
	}
	return nil
}

// VendorFlag reads the persisted vendor flag of the user domain.
func (s *Store) VendorFlag(ctx context.Context) (value bool, ok bool, err error) {
	raw, found, err := s.kv.Get(ctx, s.key(domain.DomainUser, vendorFlag))
	if err != nil || !found {
		return false, false, err
	}
	v, perr := strconv.ParseBool(raw)
	if perr != nil {
		return false, false, nil
	}
	return v, true, nil
}

// SetVendorFlag persists the vendor flag of the user domain.
func (s *Store) SetVendorFlag(ctx context.Context, v bool) error {
	return s.kv.Set(ctx, s.key(domain.DomainUser, vendorFlag), strconv.FormatBool(v))
}

// Ping checks the backend.
func (s *Store) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}
