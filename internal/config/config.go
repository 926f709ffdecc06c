// Package config loads service configuration from the environment.
package config

import (
	"fmt"

	"github.com/joeshaw/envdecode"
)

// Config carries every tunable the service reads at startup.
type Config struct {
	Addr     string `env:"RETENSYNC_ADDR,default=:8080"`
	GRPCAddr string `env:"RETENSYNC_GRPC_ADDR"` // empty disables the gRPC health listener

	// Session tiers. Empty values disable the backend.
	PGDSN    string `env:"RETENSYNC_PG_DSN"`
	RedisURL string `env:"RETENSYNC_REDIS_URL"`
	StoreKey string `env:"RETENSYNC_STORE_KEY,default=default"`

	// Upstream collaborators.
	AuthBaseURL  string `env:"RETENSYNC_AUTH_URL"`
	AuditSinkURL string `env:"RETENSYNC_AUDIT_SINK_URL"`

	// Demo mode keeps the product usable without a live auth backend.
	DemoMode   bool   `env:"RETENSYNC_DEMO_MODE,default=true"`
	DemoSecret string `env:"RETENSYNC_DEMO_SECRET,default=retensync-demo-secret"`

	RateRPS   int `env:"RETENSYNC_RATE_RPS,default=20"`
	RateBurst int `env:"RETENSYNC_RATE_BURST,default=40"`
}

// Load decodes the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
