package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront/internal/config"
	"github.com/spec-kit/storefront/internal/credential"
)

func TestCredentialKVSelection(t *testing.T) {
	logger := zap.NewNop()

	kv, err := CredentialKV(config.CredentialConfig{Backend: "memory"}, nil, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &credential.MemoryKV{}, kv)

	_, err = CredentialKV(config.CredentialConfig{Backend: "redis"}, nil, nil, logger)
	require.Error(t, err)

	_, err = CredentialKV(config.CredentialConfig{Backend: "postgres"}, nil, &Postgres{}, logger)
	require.ErrorIs(t, err, ErrPostgresNotConfigured)

	_, err = CredentialKV(config.CredentialConfig{Backend: "consul"}, nil, nil, logger)
	require.Error(t, err)
}

func TestMigrationsEmbedded(t *testing.T) {
	content, err := migrationFiles.ReadFile("migrations/0001_credentials.sql")
	require.NoError(t, err)
	assert.Contains(t, string(content), "CREATE TABLE IF NOT EXISTS credentials")

	content, err = migrationFiles.ReadFile("migrations/0002_accounts.sql")
	require.NoError(t, err)
	assert.Contains(t, string(content), "UNIQUE (domain, email)")
}
