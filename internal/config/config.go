package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	AdminAPIKey string `yaml:"admin_api_key"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// ProviderConfig configures the external payment provider client.
type ProviderConfig struct {
	Name         string        `yaml:"name"` // label carried on ledger rows
	BaseURL      string        `yaml:"base_url"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	Timeout      time.Duration `yaml:"timeout"` // bound on every provider call
}

type PaymentConfig struct {
	Currency    string `yaml:"currency"`
	AllowManual bool   `yaml:"allow_manual"`    // manual override path, non-prod/admin only
	// AllowTest lets TEST- prefixed transaction ids bypass the provider and
	// record at TrustTestMode. Rejected outside -dev.
	AllowTest bool `yaml:"allow_test_mode"`
	// Per-user verify attempts per minute; guards the provider from
	// transaction-id guessing.
	VerifyRateLimit int `yaml:"verify_rate_limit"`
}

type SessionConfig struct {
	TTL                time.Duration `yaml:"ttl"`
	RevalidateInterval time.Duration `yaml:"revalidate_interval"`
	SigningSecret      string        `yaml:"signing_secret"`
}

type SchedConfig struct {
	SessionSweepInterval time.Duration `yaml:"session_sweep_interval"`
	ReconcileInterval    time.Duration `yaml:"reconcile_interval"`
	ReconcileStaleAfter  time.Duration `yaml:"reconcile_stale_after"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Provider ProviderConfig `yaml:"provider"`
	Payment  PaymentConfig  `yaml:"payment"`
	Session  SessionConfig  `yaml:"session"`
	Sched    SchedConfig    `yaml:"sched"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Provider.Timeout <= 0 {
		cfg.Provider.Timeout = 10 * time.Second
	}
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = "checkout"
	}
	if cfg.Payment.Currency == "" {
		cfg.Payment.Currency = "USD"
	}
	if cfg.Payment.VerifyRateLimit <= 0 {
		cfg.Payment.VerifyRateLimit = 10
	}
	if cfg.Session.TTL <= 0 {
		cfg.Session.TTL = 24 * time.Hour
	}
	if cfg.Session.RevalidateInterval <= 0 {
		cfg.Session.RevalidateInterval = 5 * time.Minute
	}
	if cfg.Sched.SessionSweepInterval <= 0 {
		cfg.Sched.SessionSweepInterval = 15 * time.Minute
	}
	if cfg.Sched.ReconcileInterval <= 0 {
		cfg.Sched.ReconcileInterval = time.Minute
	}
	if cfg.Sched.ReconcileStaleAfter <= 0 {
		cfg.Sched.ReconcileStaleAfter = 10 * time.Minute
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Provider.ClientID == "" || cfg.Provider.ClientSecret == "" {
		return nil, errors.New("provider.client_id and provider.client_secret are required")
	}
	if cfg.Session.SigningSecret == "" {
		return nil, errors.New("session.signing_secret is required")
	}
	// Lower-trust record paths stay off outside dev unless explicitly enabled.
	if !dev && cfg.Payment.AllowTest {
		return nil, errors.New("payment.allow_test_mode is only permitted with -dev")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
