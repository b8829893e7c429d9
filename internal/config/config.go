package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the gateway and the console.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Sync     SyncConfig
	Console  ConsoleConfig
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

// AuthConfig defines wallet authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	ChallengeTTLSeconds   int
	// VerifierURL points at the external wallet signature verifier.
	VerifierURL string
	// AcceptAnySignature skips signature verification. It is honored only
	// in development and only when set explicitly.
	AcceptAnySignature bool
}

// SyncConfig controls event propagation between sessions.
type SyncConfig struct {
	Channel               string
	APIBaseURL            string
	RequestTimeoutSeconds int
	ForwardTimeoutSeconds int
	ForwardQueueSize      int
}

// ConsoleConfig configures the dashboard console client.
type ConsoleConfig struct {
	Dashboard         string
	CredentialBackend string
	CredentialFile    string
	CredentialKey     string
	IngressMinBackoff time.Duration
	IngressMaxBackoff time.Duration
	RefetchTimeout    time.Duration
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "invest-access-gateway"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
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
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			ChallengeTTLSeconds:   getEnvAsInt("AUTH_CHALLENGE_TTL_SECONDS", 300),
			VerifierURL:           os.Getenv("AUTH_VERIFIER_URL"),
			AcceptAnySignature:    getEnvAsBool("AUTH_ACCEPT_ANY_SIGNATURE", false),
		},
		Sync: SyncConfig{
			Channel:               getEnv("SYNC_CHANNEL", "dashboard-sync"),
			APIBaseURL:            getEnv("SYNC_API_BASE_URL", "http://127.0.0.1:8080"),
			RequestTimeoutSeconds: getEnvAsInt("SYNC_REQUEST_TIMEOUT_SECONDS", 10),
			ForwardTimeoutSeconds: getEnvAsInt("SYNC_FORWARD_TIMEOUT_SECONDS", 5),
			ForwardQueueSize:      getEnvAsInt("SYNC_FORWARD_QUEUE_SIZE", 64),
		},
		Console: ConsoleConfig{
			Dashboard:         getEnv("CONSOLE_DASHBOARD", "user"),
			CredentialBackend: getEnv("CONSOLE_CREDENTIAL_BACKEND", "file"),
			CredentialFile:    getEnv("CONSOLE_CREDENTIAL_FILE", "credential.json"),
			CredentialKey:     getEnv("CONSOLE_CREDENTIAL_KEY", "auth_token"),
			IngressMinBackoff: getEnvAsDuration("CONSOLE_INGRESS_MIN_BACKOFF", 250*time.Millisecond),
			IngressMaxBackoff: getEnvAsDuration("CONSOLE_INGRESS_MAX_BACKOFF", 10*time.Second),
			RefetchTimeout:    getEnvAsDuration("CONSOLE_REFETCH_TIMEOUT", 10*time.Second),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsDevelopment reports whether the service runs in a development environment.
func (a AppConfig) IsDevelopment() bool {
	return a.Env == "development"
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	return seconds(a.RequestTimeoutSeconds)
}

// ChallengeTTL returns how long an issued sign-in challenge stays valid.
func (a AuthConfig) ChallengeTTL() time.Duration {
	if a.ChallengeTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return seconds(a.ChallengeTTLSeconds)
}

// RequestTimeout bounds every call the console makes to the gateway API.
func (s SyncConfig) RequestTimeout() time.Duration {
	return seconds(s.RequestTimeoutSeconds)
}

// ForwardTimeout bounds a single remote forward of a published event.
func (s SyncConfig) ForwardTimeout() time.Duration {
	return seconds(s.ForwardTimeoutSeconds)
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
