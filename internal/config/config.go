package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port          string
	StorageDriver string
	DatabaseURL   string
	JWTSecret     string
	JWTIssuer     string
	SessionTTL    time.Duration
	SessionSweep  string
	CookieSecure  bool
	QuoteAPIURL   string
	QuoteAPIKey   string
	QuoteTimeout  time.Duration
	QuoteRetries  uint64
	InitialCash   decimal.Decimal
	LogLevel      logrus.Level
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "8080")
	v.SetDefault("STORAGE_DRIVER", DriverPostgres)
	v.SetDefault("JWT_ISSUER", "papertrade")
	v.SetDefault("SESSION_TTL_MINUTES", 720)
	v.SetDefault("SESSION_SWEEP_SCHEDULE", "@every 10m")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("QUOTE_API_URL", "https://cloud.iexapis.com/stable")
	v.SetDefault("QUOTE_TIMEOUT_SECONDS", 5)
	v.SetDefault("QUOTE_MAX_RETRIES", 2)
	v.SetDefault("INITIAL_CASH", "10000.00")
	v.SetDefault("LOG_LEVEL", "info")

	cfg := Config{
		Port:          fallback(v.GetString("PORT"), "8080"),
		StorageDriver: strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_DRIVER"))),
		DatabaseURL:   strings.TrimSpace(v.GetString("DATABASE_URL")),
		JWTSecret:     strings.TrimSpace(v.GetString("JWT_SECRET")),
		JWTIssuer:     fallback(v.GetString("JWT_ISSUER"), "papertrade"),
		SessionSweep:  fallback(v.GetString("SESSION_SWEEP_SCHEDULE"), "@every 10m"),
		QuoteAPIURL:   strings.TrimRight(strings.TrimSpace(v.GetString("QUOTE_API_URL")), "/"),
		QuoteAPIKey:   strings.TrimSpace(v.GetString("API_KEY")),
	}

	ttl, err := positiveInt(v, "SESSION_TTL_MINUTES")
	if err != nil {
		return Config{}, err
	}
	cfg.SessionTTL = time.Duration(ttl) * time.Minute

	timeout, err := positiveInt(v, "QUOTE_TIMEOUT_SECONDS")
	if err != nil {
		return Config{}, err
	}
	cfg.QuoteTimeout = time.Duration(timeout) * time.Second

	retries, err := cast.ToIntE(strings.TrimSpace(v.GetString("QUOTE_MAX_RETRIES")))
	if err != nil {
		return Config{}, fmt.Errorf("QUOTE_MAX_RETRIES: %w", err)
	}
	if retries < 0 {
		return Config{}, errors.New("QUOTE_MAX_RETRIES must not be negative")
	}
	cfg.QuoteRetries = uint64(retries)

	secure, err := cast.ToBoolE(strings.TrimSpace(v.GetString("COOKIE_SECURE")))
	if err != nil {
		return Config{}, fmt.Errorf("COOKIE_SECURE: %w", err)
	}
	cfg.CookieSecure = secure

	cash, err := decimal.NewFromString(strings.TrimSpace(v.GetString("INITIAL_CASH")))
	if err != nil {
		return Config{}, fmt.Errorf("INITIAL_CASH: %w", err)
	}
	if cash.IsNegative() {
		return Config{}, errors.New("INITIAL_CASH must not be negative")
	}
	cfg.InitialCash = cash

	level, err := logrus.ParseLevel(fallback(v.GetString("LOG_LEVEL"), "info"))
	if err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	switch cfg.StorageDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required")
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if cfg.QuoteAPIKey == "" {
		return Config{}, errors.New("API_KEY is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func positiveInt(v *viper.Viper, key string) (int, error) {
	n, err := cast.ToIntE(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return n, nil
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}
