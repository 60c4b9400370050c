// Package config provides application configuration loaded from environment
// variables. Use the package-level Get() function to obtain the singleton
// Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds the admin HTTP surface's settings.
type ServerConfig struct {
	AdminPort       string // e.g. "8081"
	Env             string // "development" | "production"
	AdminAllowedIPs string // comma-separated IPs; "" = allow all
}

// RedisConfig holds the durable KV store's connection settings.
type RedisConfig struct {
	URL          string        // redis://host:port/db
	DialTimeout  time.Duration // default 5s
	ReadTimeout  time.Duration // default 3s
	WriteTimeout time.Duration // default 3s
}

// ProviderConfig holds outbound provider-gateway call settings.
type ProviderConfig struct {
	BridgeURL   string        // base URL of the external automation bridge
	CallTimeout time.Duration // per-call soft timeout, default 30s
}

// JWTConfig holds the admin surface's bearer-token settings.
type JWTConfig struct {
	AccessSecret string // HMAC secret for admin tokens; empty disables the admin surface
}

// ReporterConfig holds the outbound result-reporting sink's settings.
type ReporterConfig struct {
	APIBaseURL  string        // e.g. "http://api:3001"
	HTTPTimeout time.Duration // default 5s
	QueueDepth  int           // buffered channel capacity, default 256
	Workers     int           // number of emit workers, default 2
}

// EngineConfig holds the execution/settlement engine's tunables. The
// values are exposed for observability and tests; they are not meant to be
// varied in production without understanding the invariants they protect
// (the cooldown window in particular is assumed fixed by every layer that
// touches it).
type EngineConfig struct {
	CooldownSeconds   int           // default 60
	PollInterval      time.Duration // default 5s
	MaxPolls          int           // default 120
	QueueName         string        // default "arb-execute"
	QueuePollTimeout  time.Duration // default 1s (BLPOP timeout)
	ExposureCacheSize int           // in-memory bounded list size, default 500
}

// Cooldown returns the configured cooldown window as a time.Duration.
func (c EngineConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the worker process.
type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Provider ProviderConfig
	Reporter ReporterConfig
	Engine   EngineConfig
	JWT      JWTConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and
// consistent. Returns every problem found, joined with errors.Join.
func (c *Config) Validate() error {
	var errs []error

	if c.Redis.URL == "" {
		errs = append(errs, errors.New("REDIS_URL must be set"))
	}
	if c.Reporter.APIBaseURL == "" {
		errs = append(errs, errors.New("API_URL must be set"))
	}
	if c.Engine.CooldownSeconds <= 0 {
		errs = append(errs, fmt.Errorf("COOLDOWN_SECONDS must be positive, got %d", c.Engine.CooldownSeconds))
	}
	if c.Engine.MaxPolls <= 0 {
		errs = append(errs, fmt.Errorf("ENGINE_MAX_POLLS must be positive, got %d", c.Engine.MaxPolls))
	}
	if c.Engine.PollInterval <= 0 {
		errs = append(errs, errors.New("ENGINE_POLL_INTERVAL must be positive"))
	}
	if c.Reporter.Workers <= 0 {
		errs = append(errs, errors.New("REPORTER_WORKERS must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
)

// Get returns the singleton Config, loading it once from environment
// variables. Call MustLoad early in main() to catch misconfiguration at
// startup; Get is safe to call repeatedly afterward.
func Get() *Config {
	once.Do(func() {
		instance = load()
	})
	return instance
}

// MustLoad loads and validates configuration, panicking on any error so
// misconfiguration is caught immediately at boot rather than surfacing as a
// confusing failure deep inside the engine.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() *Config {
	cfg := &Config{}

	cfg.Server = ServerConfig{
		AdminPort:       getEnv("ADMIN_PORT", "8081"),
		Env:             getEnv("ENVIRONMENT", "development"),
		AdminAllowedIPs: getEnv("ADMIN_ALLOWED_IPS", ""),
	}

	cfg.Redis = RedisConfig{
		URL:          getEnv("REDIS_URL", "redis://redis:6379"),
		DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
	}

	cfg.Provider = ProviderConfig{
		BridgeURL:   getEnv("PROVIDER_BRIDGE_URL", "http://bridge:3002"),
		CallTimeout: getDuration("PROVIDER_CALL_TIMEOUT", 30*time.Second),
	}

	cfg.Reporter = ReporterConfig{
		APIBaseURL:  getEnv("API_URL", "http://api:3001"),
		HTTPTimeout: getDuration("REPORTER_HTTP_TIMEOUT", 5*time.Second),
		QueueDepth:  getIntDefault("REPORTER_QUEUE_DEPTH", 256),
		Workers:     getIntDefault("REPORTER_WORKERS", 2),
	}

	cfg.JWT = JWTConfig{
		AccessSecret: getEnv("ADMIN_JWT_SECRET", ""),
	}

	cfg.Engine = EngineConfig{
		CooldownSeconds:   getIntDefault("COOLDOWN_SECONDS", 60),
		PollInterval:      getDuration("ENGINE_POLL_INTERVAL", 5*time.Second),
		MaxPolls:          getIntDefault("ENGINE_MAX_POLLS", 120),
		QueueName:         getEnv("ENGINE_QUEUE_NAME", "arb-execute"),
		QueuePollTimeout:  getDuration("ENGINE_QUEUE_POLL_TIMEOUT", 1*time.Second),
		ExposureCacheSize: getIntDefault("ENGINE_EXPOSURE_CACHE_SIZE", 500),
	}

	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getIntDefault(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal if the variable is unset or unparsable.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
