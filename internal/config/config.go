package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the storefront.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Credential CredentialConfig
	Remote     RemoteConfig
	Session    SessionConfig
	Routes     RoutesConfig
	DevAPI     DevAPIConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// CredentialConfig selects where bearer credentials are persisted.
type CredentialConfig struct {
	Backend   string // memory, redis or postgres
	Namespace string
}

// RemoteConfig points at the storefront API.
type RemoteConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// SessionConfig tunes the authorization core.
type SessionConfig struct {
	SignalsChannel  string
	HydrationWaitMS int
	LogoutTimeoutMS int
}

// RoutesConfig holds redirect targets per domain.
type RoutesConfig struct {
	AdminLogin   string
	AdminLanding string
	UserLogin    string
	UserLanding  string
	VendorHome   string
	RoleSelect   string
}

// DevAPIConfig configures the development stand-in for the remote API.
type DevAPIConfig struct {
	Host                  string
	Port                  string
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	// Accounts is a comma separated list of domain:email:password[:vendor] entries.
	Accounts []string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	backend := strings.ToLower(getEnv("CREDENTIAL_BACKEND", "redis"))
	switch backend {
	case "memory", "redis", "postgres":
	default:
		return nil, fmt.Errorf("invalid CREDENTIAL_BACKEND: %q", backend)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "storefront"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "127.0.0.1"),
			Port:                  getEnv("APP_PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 4)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 1)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Credential: CredentialConfig{
			Backend:   backend,
			Namespace: getEnv("CREDENTIAL_NAMESPACE", "storefront"),
		},
		Remote: RemoteConfig{
			BaseURL:        getEnv("REMOTE_BASE_URL", "http://127.0.0.1:8081"),
			TimeoutSeconds: getEnvAsInt("REMOTE_TIMEOUT_SECONDS", 10),
		},
		Session: SessionConfig{
			SignalsChannel:  getEnv("SIGNALS_CHANNEL", "storefront:account-signals"),
			HydrationWaitMS: getEnvAsInt("HYDRATION_WAIT_MS", 1500),
			LogoutTimeoutMS: getEnvAsInt("LOGOUT_TIMEOUT_MS", 5000),
		},
		Routes: RoutesConfig{
			AdminLogin:   getEnv("ROUTE_ADMIN_LOGIN", "/admin/login"),
			AdminLanding: getEnv("ROUTE_ADMIN_LANDING", "/admin"),
			UserLogin:    getEnv("ROUTE_USER_LOGIN", "/login"),
			UserLanding:  getEnv("ROUTE_USER_LANDING", "/"),
			VendorHome:   getEnv("ROUTE_VENDOR_HOME", "/vendor"),
			RoleSelect:   getEnv("ROUTE_ROLE_SELECT", "/select-role"),
		},
		DevAPI: DevAPIConfig{
			Host:                  getEnv("DEVAPI_HOST", "127.0.0.1"),
			Port:                  getEnv("DEVAPI_PORT", "8081"),
			JWTSecret:             getEnv("DEVAPI_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("DEVAPI_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("DEVAPI_BCRYPT_COST", 10),
			Accounts:              getEnvAsList("DEVAPI_ACCOUNTS", "admin:admin@example.com:admin,user:customer@example.com:customer,user:vendor@example.com:vendor:vendor"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the per-call timeout for remote requests.
func (r RemoteConfig) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// HydrationWait is how long a navigation waits for the first hydration.
func (s SessionConfig) HydrationWait() time.Duration {
	return time.Duration(s.HydrationWaitMS) * time.Millisecond
}

// LogoutTimeout bounds the remote invalidation call.
func (s SessionConfig) LogoutTimeout() time.Duration {
	if s.LogoutTimeoutMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.LogoutTimeoutMS) * time.Millisecond
}

// Addr returns the dev API bind address.
func (d DevAPIConfig) Addr() string {
	return fmt.Sprintf("%s:%s", d.Host, d.Port)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
