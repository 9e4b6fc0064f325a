package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_PassesValidationOnceRequiredFieldsAreSet(t *testing.T) {
	cfg := Default()
	cfg.StorageBucket = "resumerank"
	cfg.ListenAddr = ":8080"
	cfg.PostgresDSN = "postgres://localhost/resumerank"

	require.NoError(t, validator.New().Struct(cfg))
	assert.Equal(t, 90, cfg.LeaseSeconds)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, "claude-sonnet-4-5", cfg.AnthropicModel)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/resumerank")
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().LeaseSeconds, cfg.LeaseSeconds)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/resumerank")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "lease_seconds: 120\nstorage_bucket: custom-bucket\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.LeaseSeconds)
	assert.Equal(t, "custom-bucket", cfg.StorageBucket)
}

func TestLoad_EnvOverridesYAMLAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "lease_seconds: 120\nstorage_bucket: custom-bucket\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	t.Setenv("LEASE_SECONDS", "45")
	t.Setenv("STORAGE_BUCKET", "env-bucket")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/resumerank")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 45, cfg.LeaseSeconds)
	assert.Equal(t, "env-bucket", cfg.StorageBucket)
}

func TestLoad_InvalidConfigurationFailsValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "storage_bucket: \"\"\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MalformedYAMLIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: valid: yaml: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDurationHelpers(t *testing.T) {
	cfg := Config{LeaseSeconds: 2, WorkerBackoffBaseMS: 500, WatchdogIntervalMS: 1000}
	assert.Equal(t, int64(2000000000), cfg.LeaseDuration().Nanoseconds())
	assert.Equal(t, int64(500000000), cfg.WorkerBackoffBase().Nanoseconds())
	assert.Equal(t, int64(1000000000), cfg.WatchdogInterval().Nanoseconds())
}
