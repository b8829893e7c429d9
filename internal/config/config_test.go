package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SYNC_CHANNEL", "")
	t.Setenv("AUTH_CHALLENGE_TTL_SECONDS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dashboard-sync", cfg.Sync.Channel)
	assert.Equal(t, 5*time.Minute, cfg.Auth.ChallengeTTL())
	assert.Equal(t, 5*time.Second, cfg.Sync.ForwardTimeout())
	assert.Equal(t, "file", cfg.Console.CredentialBackend)
	assert.Equal(t, 10*time.Second, cfg.Console.IngressMaxBackoff)
	assert.False(t, cfg.Auth.AcceptAnySignature)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SYNC_CHANNEL", "tenant-a")
	t.Setenv("SYNC_FORWARD_QUEUE_SIZE", "8")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "not-a-number")
	t.Setenv("CONSOLE_INGRESS_MIN_BACKOFF", "50ms")
	t.Setenv("CONSOLE_REFETCH_TIMEOUT", "-1s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "tenant-a", cfg.Sync.Channel)
	assert.Equal(t, 8, cfg.Sync.ForwardQueueSize)
	assert.False(t, cfg.Postgres.RunMigrations)
	assert.Equal(t, 60, cfg.Auth.AccessTokenTTLMinutes)
	assert.Equal(t, 50*time.Millisecond, cfg.Console.IngressMinBackoff)
	assert.Equal(t, 10*time.Second, cfg.Console.RefetchTimeout)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")

	_, err := Load()
	require.Error(t, err)
}
