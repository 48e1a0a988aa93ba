package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("CACHE_TTL", "")
	t.Setenv("TX_MAX_RETRIES", "")

	cfg := Load()

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.Equal(t, 10, cfg.Database.TxMaxRetries)
	assert.Equal(t, "seatwise-events", cfg.Search.Index)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("TX_MAX_RETRIES", "7")
	t.Setenv("STORE_DRIVER", "MEMORY")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 90*time.Second, cfg.Redis.TTL)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 7, cfg.Database.TxMaxRetries)
	assert.Equal(t, "memory", cfg.StoreDriver)
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv("REDIS_DB", "two")
	t.Setenv("AUDIT_INTERVAL", "often")
	t.Setenv("METRICS_ENABLED", "maybe")

	assert.Equal(t, 0, getEnvInt("REDIS_DB", 0))
	assert.Equal(t, time.Minute, getEnvDuration("AUDIT_INTERVAL", time.Minute))
	assert.True(t, getEnvBool("METRICS_ENABLED", true))
}
