package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{"CATALOG_CONFIG", "PORT", "DB_DRIVER", "DB_DSN", "DB_AUTO_MIGRATE", "SEED_DEMO_DATA", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9090\"\ndb_driver: postgres\ndb_dsn: postgres://file\nseed_demo_data: true\ncors_allowed_origins:\n  - https://a.example\n"), 0o600))
	t.Setenv("CATALOG_CONFIG", path)
	t.Setenv("DB_DSN", "postgres://env")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://b.example, https://c.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.DatabaseDriver)
	assert.Equal(t, "postgres://env", cfg.DatabaseURL)
	assert.True(t, cfg.SeedDemoData)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, []string{"https://b.example", "https://c.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "mysql")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CATALOG_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestReadBool(t *testing.T) {
	t.Setenv("FLAG_X", "nope")
	assert.True(t, readBool("FLAG_X", true))
	t.Setenv("FLAG_X", "false")
	assert.False(t, readBool("FLAG_X", true))
}
