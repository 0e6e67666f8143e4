// Package config loads the storefront configuration from the environment.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config is the full runtime configuration. Every field has a working
// default so a bare `storefront` starts with a local file store and no
// remote backend.
type Config struct {
	// Port the HTTP API listens on.
	Port string `env:"PORT, default=8084"`

	// DatabaseURL selects the Postgres store when set; otherwise the
	// storefront persists to DataFile.
	DatabaseURL string `env:"DATABASE_URL"`

	// DataFile is the JSON keyspace for the file store.
	DataFile string `env:"DATA_FILE, default=gasexpress.json"`

	// StorageQuotaBytes caps the file keyspace, mirroring a browser's
	// local storage budget.
	StorageQuotaBytes int `env:"STORAGE_QUOTA_BYTES, default=5242880"`

	// SessionTTLMinutes is the session lifetime.
	SessionTTLMinutes int `env:"SESSION_TTL_MIN, default=30"`

	// RemoteBaseURL enables the remote backend with local fallback when
	// set; empty keeps everything local.
	RemoteBaseURL string `env:"REMOTE_BASE_URL"`

	// RemoteTimeout bounds each remote call.
	RemoteTimeout time.Duration `env:"REMOTE_TIMEOUT, default=8s"`

	// OTLPEndpoint turns on trace export when set.
	OTLPEndpoint string `env:"OTLP_ENDPOINT"`
}

// Load reads the configuration from the environment.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if cfg.StorageQuotaBytes < 0 {
		return nil, fmt.Errorf("STORAGE_QUOTA_BYTES must not be negative")
	}
	if cfg.SessionTTLMinutes <= 0 {
		return nil, fmt.Errorf("SESSION_TTL_MIN must be positive")
	}
	return &cfg, nil
}
