package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_PASSWORD", "pw")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageDriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://todo:pw@localhost:5432/todo?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.NotEmpty(t, cfg.JWT.Secret, "development falls back to a local secret")
	assert.Equal(t, "./assets/migrations", cfg.Migrations.Path)
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "BOLT")
	t.Setenv("BOLT_PATH", "/tmp/todo-test.db")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STATS_CACHE_TTL", "90")
	t.Setenv("JWT_REFRESH_TTL", "48h")
	t.Setenv("STATS_CACHE_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageDriverBolt, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/todo-test.db", cfg.Storage.BoltPath)
	assert.Equal(t, 90*time.Second, cfg.Stats.CacheTTL)
	assert.Equal(t, 48*time.Hour, cfg.JWT.RefreshTTL)
	assert.False(t, cfg.Stats.CacheEnabled)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cfg := &Config{
		Environment: "production",
		Storage:     StorageConfig{Driver: "mongo"},
		JWT:         JWTConfig{AccessTTL: time.Minute, RefreshTTL: time.Hour},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown STORAGE_DRIVER")
	assert.Contains(t, err.Error(), "JWT_SECRET is required")

	cfg = &Config{
		Storage: StorageConfig{Driver: StorageDriverBolt, BoltPath: "same.db"},
		Buffer:  BufferConfig{Path: "same.db"},
		JWT:     JWTConfig{Secret: "x", AccessTTL: time.Minute, RefreshTTL: time.Hour},
	}
	assert.ErrorContains(t, cfg.Validate(), "different files")
}
