package credential_test

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront/internal/config"
	"github.com/spec-kit/storefront/internal/credential"
	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/persistence"
)

func exerciseStore(t *testing.T, store *credential.Store) {
	t.Helper()
	ctx := context.Background()

	for _, d := range domain.Domains {
		cred, err := store.Load(ctx, d)
		require.NoError(t, err)
		assert.False(t, cred.Stored, "fresh store has no %s credential", d)
	}

	require.NoError(t, store.Save(ctx, domain.DomainAdmin, "admin-token"))
	require.NoError(t, store.Save(ctx, domain.DomainUser, "user-token"))
	require.NoError(t, store.SetVendorFlag(ctx, true))

	admin, err := store.Load(ctx, domain.DomainAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.Credential{Domain: domain.DomainAdmin, Token: "admin-token", Stored: true}, admin)

	vendor, ok, err := store.VendorFlag(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, vendor)

	require.NoError(t, store.Clear(ctx, domain.DomainUser))
	user, err := store.Load(ctx, domain.DomainUser)
	require.NoError(t, err)
	assert.False(t, user.Stored)
	_, ok, err = store.VendorFlag(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "clearing the user credential drops the vendor flag")

	admin, err = store.Load(ctx, domain.DomainAdmin)
	require.NoError(t, err)
	assert.True(t, admin.Stored, "domains are cleared independently")

	require.NoError(t, store.Clear(ctx, domain.DomainAdmin))
	require.NoError(t, store.Clear(ctx, domain.DomainAdmin), "clearing twice is harmless")
	require.ErrorIs(t, store.Save(ctx, domain.DomainAdmin, ""), credential.ErrEmptyToken)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, credential.NewStore(credential.NewMemoryKV(), "test"))
}

func TestStoreKeysAreDomainScoped(t *testing.T) {
	store := credential.NewStore(credential.NewMemoryKV(), "")
	assert.Equal(t, "storefront:admin:token", store.TokenKey(domain.DomainAdmin))
	assert.Equal(t, "storefront:user:token", store.TokenKey(domain.DomainUser))
}

func TestVendorFlagIgnoresGarbage(t *testing.T) {
	kv := credential.NewMemoryKV()
	store := credential.NewStore(kv, "ns")
	require.NoError(t, kv.Set(context.Background(), "ns:user:is_vendor", "maybe"))

	_, ok, err := store.VendorFlag(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	exerciseStore(t, credential.NewStore(credential.NewRedisKV(client), "test-"+t.Name()))
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pg, err := persistence.NewPostgres(ctx, config.PostgresConfig{DSN: dsn, RunMigrations: true}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pg.Close)

	exerciseStore(t, credential.NewStore(credential.NewPostgresKV(pg.Pool), "test-"+t.Name()))
}
