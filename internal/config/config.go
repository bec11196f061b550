// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mbd888/fountainscan/internal/logging"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port        string
	Env         string // "development", "staging", "production"
	LogLevel    string
	LogFormat   string // "json" or "text"
	CORSOrigins []string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Scoring
	RiskLowMin    int
	RiskMediumMin int
	RiskHighMin   int
	CatalogFile   string // optional JSON catalog definition replacing the built-in one

	// Scan cache
	CacheFreshness     time.Duration
	CacheExpiry        time.Duration
	CacheSweepInterval time.Duration

	// Domain-age probe
	ProbeEnabled bool
	ProbeTimeout time.Duration
	ProbeMaxAge  time.Duration

	// Toggles
	AlertsEnabled    bool
	BlockingEnabled  bool
	RealTimeScanning bool
	AutoUpdate       bool

	// Reports
	ReportEndpointURL   string
	ReportSigningSecret string

	// Security
	AdminSecret  string
	RateLimitRPM int

	// Observability
	OTLPEndpoint string
}

// Defaults
const (
	DefaultPort               = "8080"
	DefaultEnv                = "development"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
	DefaultRiskLowMin         = 2
	DefaultRiskMediumMin      = 5
	DefaultRiskHighMin        = 8
	DefaultCacheFreshness     = 5 * time.Minute
	DefaultCacheExpiry        = 24 * time.Hour
	DefaultCacheSweepInterval = 10 * time.Minute
	DefaultProbeTimeout       = 3 * time.Second
	DefaultProbeMaxAge        = 30 * 24 * time.Hour
	DefaultRateLimitRPM       = 600
	DefaultCORSOrigins        = "chrome-extension://*,moz-extension://*"
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", DefaultPort),
		Env:         getEnv("ENV", DefaultEnv),
		LogLevel:    getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:   getEnv("LOG_FORMAT", DefaultLogFormat),
		CORSOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", DefaultCORSOrigins)),
		DatabaseURL: os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set

		RiskLowMin:    getEnvInt("RISK_LOW_MIN", DefaultRiskLowMin),
		RiskMediumMin: getEnvInt("RISK_MEDIUM_MIN", DefaultRiskMediumMin),
		RiskHighMin:   getEnvInt("RISK_HIGH_MIN", DefaultRiskHighMin),
		CatalogFile:   os.Getenv("CATALOG_FILE"),

		CacheFreshness:     getEnvDuration("CACHE_FRESHNESS", DefaultCacheFreshness),
		CacheExpiry:        getEnvDuration("CACHE_EXPIRY", DefaultCacheExpiry),
		CacheSweepInterval: getEnvDuration("CACHE_SWEEP_INTERVAL", DefaultCacheSweepInterval),

		ProbeEnabled: getEnvBool("PROBE_ENABLED", true),
		ProbeTimeout: getEnvDuration("PROBE_TIMEOUT", DefaultProbeTimeout),
		ProbeMaxAge:  getEnvDuration("PROBE_MAX_AGE", DefaultProbeMaxAge),

		AlertsEnabled:    getEnvBool("ALERTS_ENABLED", true),
		BlockingEnabled:  getEnvBool("BLOCKING_ENABLED", false),
		RealTimeScanning: getEnvBool("REALTIME_SCANNING", true),
		AutoUpdate:       getEnvBool("AUTO_UPDATE", true),

		ReportEndpointURL:   os.Getenv("REPORT_ENDPOINT_URL"),
		ReportSigningSecret: os.Getenv("REPORT_SIGNING_SECRET"),

		AdminSecret:  os.Getenv("ADMIN_SECRET"),
		RateLimitRPM: getEnvInt("RATE_LIMIT_RPM", DefaultRateLimitRPM),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.RiskLowMin <= 0 || c.RiskMediumMin <= c.RiskLowMin || c.RiskHighMin <= c.RiskMediumMin {
		return fmt.Errorf("risk thresholds must be positive and strictly ascending, got %d/%d/%d",
			c.RiskLowMin, c.RiskMediumMin, c.RiskHighMin)
	}
	if c.CacheFreshness <= 0 {
		return fmt.Errorf("CACHE_FRESHNESS must be positive")
	}
	if c.CacheExpiry < c.CacheFreshness {
		return fmt.Errorf("CACHE_EXPIRY (%s) must not be shorter than CACHE_FRESHNESS (%s)", c.CacheExpiry, c.CacheFreshness)
	}
	if c.CacheSweepInterval <= 0 {
		return fmt.Errorf("CACHE_SWEEP_INTERVAL must be positive")
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("PROBE_TIMEOUT must be positive")
	}
	if c.RateLimitRPM <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPM must be positive")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	if c.IsProduction() && c.AdminSecret == "" {
		return fmt.Errorf("ADMIN_SECRET is required in production")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
