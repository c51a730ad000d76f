package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eaglebank/ledger/ledger-service/internal/repository"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8085", cfg.Addr())
	assert.Equal(t, uint(5), cfg.TxMaxAttempts)
	assert.Equal(t, 20*time.Millisecond, cfg.TxRetryBase)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 24*time.Hour, cfg.RecordCacheTTL)
	assert.Empty(t, cfg.RedisAddr)

	dialect, err := cfg.Dialect()
	require.NoError(t, err)
	assert.Equal(t, repository.Postgres, dialect)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "/tmp/ledger.db")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("TX_MAX_ATTEMPTS", "8")
	t.Setenv("RECORD_CACHE_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, uint(8), cfg.TxMaxAttempts)
	assert.Equal(t, time.Hour, cfg.RecordCacheTTL)

	dialect, err := cfg.Dialect()
	require.NoError(t, err)
	assert.Equal(t, repository.SQLite, dialect)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_DRIVER", "mysql")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("TX_MAX_ATTEMPTS", "0")
	_, err = Load()
	assert.Error(t, err)
}
