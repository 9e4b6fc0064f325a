// Package config loads process configuration for resumerank: an optional
// YAML file read first, then overridden field-by-field by the environment
// variables spec.md §6 enumerates, then validated once at startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable spec.md §6 names plus the connection strings
// the domain stack needs.
type Config struct {
	// Engine tunables, spec.md §6.
	LeaseSeconds        int    `yaml:"lease_seconds" validate:"min=1"`
	MaxRetries          int    `yaml:"max_retries" validate:"min=0"`
	WorkerBackoffBaseMS int    `yaml:"worker_backoff_base_ms" validate:"min=1"`
	StorageBucket       string `yaml:"storage_bucket" validate:"required"`
	WatchdogIntervalMS  int    `yaml:"watchdog_interval_ms" validate:"min=1"`

	// Transport.
	ListenAddr  string   `yaml:"listen_addr" validate:"required"`
	CORSOrigins []string `yaml:"cors_origins"`

	// State Store Gateway.
	PostgresDSN string `yaml:"postgres_dsn" validate:"required"`

	// Object Store Gateway. Empty Endpoint means use LocalGateway instead
	// of S3Gateway.
	S3Endpoint  string `yaml:"s3_endpoint"`
	S3AccessKey string `yaml:"s3_access_key"`
	S3SecretKey string `yaml:"s3_secret_key"`
	S3UseSSL    bool   `yaml:"s3_use_ssl"`

	// Analyzer Adapter.
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AnthropicModel  string `yaml:"anthropic_model"`

	// Optional HA coordination (pkg/coordination). An empty NodeID means
	// run single-process, no Raft.
	CoordinationNodeID   string   `yaml:"coordination_node_id"`
	CoordinationBindAddr string   `yaml:"coordination_bind_addr"`
	CoordinationDataDir  string   `yaml:"coordination_data_dir"`
	CoordinationPeers    []string `yaml:"coordination_peers"`
}

// LeaseDuration is LeaseSeconds as a time.Duration.
func (c Config) LeaseDuration() time.Duration {
	return time.Duration(c.LeaseSeconds) * time.Second
}

// WorkerBackoffBase is WorkerBackoffBaseMS as a time.Duration.
func (c Config) WorkerBackoffBase() time.Duration {
	return time.Duration(c.WorkerBackoffBaseMS) * time.Millisecond
}

// WatchdogInterval is WatchdogIntervalMS as a time.Duration.
func (c Config) WatchdogInterval() time.Duration {
	return time.Duration(c.WatchdogIntervalMS) * time.Millisecond
}

// Default returns the reference values spec.md §6 names.
func Default() Config {
	return Config{
		LeaseSeconds:        90,
		MaxRetries:          3,
		WorkerBackoffBaseMS: 2000,
		StorageBucket:       "resumerank",
		WatchdogIntervalMS:  15000,
		ListenAddr:          ":8080",
		AnthropicModel:      "claude-sonnet-4-5",
	}
}

// Load reads path (if non-empty and present) as YAML into Default(), then
// overrides fields from environment variables, then validates. A missing
// path is not an error — env vars and defaults may be sufficient.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("LEASE_SECONDS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LeaseSeconds = n
		}
	}
	if v, ok := os.LookupEnv("MAX_RETRIES"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRetries = n
		}
	}
	if v, ok := os.LookupEnv("WORKER_BACKOFF_BASE_MS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WorkerBackoffBaseMS = n
		}
	}
	if v, ok := os.LookupEnv("STORAGE_BUCKET"); ok && v != "" {
		cfg.StorageBucket = v
	}
	if v, ok := os.LookupEnv("WATCHDOG_INTERVAL_MS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WatchdogIntervalMS = n
		}
	}
	if v, ok := os.LookupEnv("LISTEN_ADDR"); ok && v != "" {
		cfg.ListenAddr = v
	}
	if v, ok := os.LookupEnv("POSTGRES_DSN"); ok && v != "" {
		cfg.PostgresDSN = v
	}
	if v, ok := os.LookupEnv("S3_ENDPOINT"); ok && v != "" {
		cfg.S3Endpoint = v
	}
	if v, ok := os.LookupEnv("S3_ACCESS_KEY"); ok && v != "" {
		cfg.S3AccessKey = v
	}
	if v, ok := os.LookupEnv("S3_SECRET_KEY"); ok && v != "" {
		cfg.S3SecretKey = v
	}
	if v, ok := os.LookupEnv("S3_USE_SSL"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.S3UseSSL = b
		}
	}
	if v, ok := os.LookupEnv("ANTHROPIC_API_KEY"); ok && v != "" {
		cfg.AnthropicAPIKey = v
	}
	if v, ok := os.LookupEnv("ANTHROPIC_MODEL"); ok && v != "" {
		cfg.AnthropicModel = v
	}
	if v, ok := os.LookupEnv("COORDINATION_NODE_ID"); ok && v != "" {
		cfg.CoordinationNodeID = v
	}
	if v, ok := os.LookupEnv("COORDINATION_BIND_ADDR"); ok && v != "" {
		cfg.CoordinationBindAddr = v
	}
	if v, ok := os.LookupEnv("COORDINATION_DATA_DIR"); ok && v != "" {
		cfg.CoordinationDataDir = v
	}
}
