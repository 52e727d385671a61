package persistence

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront/internal/config"
	"github.com/spec-kit/storefront/internal/credential"
)

// CredentialKV selects the credential backend named by cfg.Backend.
func CredentialKV(cfg config.CredentialConfig, redis *Redis, pg *Postgres, logger *zap.Logger) (credential.KV, error) {
	switch cfg.Backend {
	case "memory":
		logger.Warn("credentials kept in memory; sessions will not survive a restart")
		return credential.NewMemoryKV(), nil
	case "redis":
		if redis == nil || redis.Client == nil {
			return nil, fmt.Errorf("credential backend redis: client not configured")
		}
		return credential.NewRedisKV(redis.Client), nil
	case "postgres":
		if !pg.Configured() {
			return nil, fmt.Errorf("credential backend postgres: %w", ErrPostgresNotConfigured)
		}
		return credential.NewPostgresKV(pg.Pool), nil
	}
	return nil, fmt.Errorf("unknown credential backend %q", cfg.Backend)
}
