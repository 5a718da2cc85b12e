package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Billing  BillingConfig
	Rates    RatesConfig
	Poll     PollConfig
	Session  SessionConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// BillingConfig holds the upstream billing API configuration.
type BillingConfig struct {
	BaseURL     string // empty means derive from Environment
	AuthToken   string
	Timeout     time.Duration
	Environment string // sandbox | production
}

// RatesConfig holds the currency conversion rates.
// Rates are configuration, not constants: they move with the BTC price.
type RatesConfig struct {
	SatsPerLocal   float64
	LocalPerUSD    float64
	SatsPerUSD     float64
	NetworkFeeSats int64
}

// PollConfig controls the optional bounded settlement poll.
type PollConfig struct {
	Enabled     bool
	Interval    time.Duration
	MaxAttempts int
}

// Window is the longest a poll waits between attempts.
func (p PollConfig) Window() time.Duration {
	return p.Interval * time.Duration(p.MaxAttempts)
}

// SessionConfig controls the in-memory flow registry.
type SessionConfig struct {
	TTL time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 45*time.Second),
		},
		Billing: BillingConfig{
			BaseURL:     getEnv("BILLING_BASE_URL", ""),
			AuthToken:   getEnv("BILLING_API_KEY", ""),
			Timeout:     getDurationEnv("BILLING_TIMEOUT", 30*time.Second),
			Environment: getEnv("BILLING_ENV", "sandbox"),
		},
		Rates: RatesConfig{
			SatsPerLocal:   getFloatEnv("RATE_SATS_PER_NGN", 0.5677),
			LocalPerUSD:    getFloatEnv("RATE_NGN_PER_USD", 1630),
			SatsPerUSD:     getFloatEnv("RATE_SATS_PER_USD", 1500),
			NetworkFeeSats: int64(getIntEnv("NETWORK_FEE_SATS", 4)),
		},
		Poll: PollConfig{
			Enabled:     getBoolEnv("POLL_ENABLED", false),
			Interval:    getDurationEnv("POLL_INTERVAL", 3*time.Second),
			MaxAttempts: getIntEnv("POLL_MAX_ATTEMPTS", 10),
		},
		Session: SessionConfig{
			TTL: getDurationEnv("SESSION_TTL", 30*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			CacheTTL: getDurationEnv("CATALOG_CACHE_TTL", 10*time.Minute),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "billpay"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
	}
}

// Validate rejects settings the server cannot honour. A settlement poll runs
// inside its HTTP request, so it must finish before the write deadline.
func (c *Config) Validate() error {
	if !c.Poll.Enabled {
		return nil
	}
	if c.Poll.Interval <= 0 || c.Poll.MaxAttempts <= 0 {
		return fmt.Errorf("poll interval and max attempts must be positive")
	}
	if c.Server.WriteTimeout > 0 && c.Poll.Window() >= c.Server.WriteTimeout {
		return fmt.Errorf("poll window %s (%d x %s) must be shorter than SERVER_WRITE_TIMEOUT %s",
			c.Poll.Window(), c.Poll.MaxAttempts, c.Poll.Interval, c.Server.WriteTimeout)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
