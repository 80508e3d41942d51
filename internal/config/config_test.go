package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Server.StoreDriver)
	assert.Equal(t, int64(50), cfg.Ledger.SignupBonus)
	assert.Equal(t, int64(25), cfg.Ledger.DefaultItemPoints)
	assert.Equal(t, 5*time.Second, cfg.Ledger.SwapTimeout)
	assert.Equal(t, time.Minute, cfg.Redis.StatsTTL)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("REDIS_STATS_TTL", "30s")
	t.Setenv("LEDGER_SIGNUP_BONUS", "0")
	t.Setenv("LEDGER_DEFAULT_ITEM_POINTS", "40")
	t.Setenv("LEDGER_SWAP_TIMEOUT", "2s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Server.StoreDriver)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 30*time.Second, cfg.Redis.StatsTTL)
	assert.Equal(t, int64(0), cfg.Ledger.SignupBonus)
	assert.Equal(t, int64(40), cfg.Ledger.DefaultItemPoints)
	assert.Equal(t, 2*time.Second, cfg.Ledger.SwapTimeout)
	assert.Equal(t,
		"host=db.internal port=6543 user=postgres password=password dbname=rewear sslmode=disable",
		cfg.Database.GetDSN())
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown store driver", "STORE_DRIVER", "sqlite"},
		{"negative signup bonus", "LEDGER_SIGNUP_BONUS", "-1"},
		{"zero swap timeout", "LEDGER_SWAP_TIMEOUT", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
