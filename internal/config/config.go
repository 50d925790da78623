// Package config loads authd configuration from the environment and an
// optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/authgate/authgate"
	"github.com/spf13/viper"
)

// Config holds authd configuration. Durations accept Go syntax ("15m").
type Config struct {
	HTTPAddr        string        `mapstructure:"HTTP_ADDR"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	// TrustProxy takes client IPs from X-Forwarded-For / X-Real-IP.
	TrustProxy bool   `mapstructure:"TRUST_PROXY"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// DatabaseURL selects the Postgres repository; empty runs in memory.
	DatabaseURL     string `mapstructure:"DATABASE_URL"`
	DatabaseMigrate bool   `mapstructure:"DATABASE_MIGRATE"`

	JWTSigningKey string        `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer     string        `mapstructure:"JWT_ISSUER"`
	JWTAudience   string        `mapstructure:"JWT_AUDIENCE"`
	JWTAccessTTL  time.Duration `mapstructure:"JWT_ACCESS_TTL"`
	JWTRefreshTTL time.Duration `mapstructure:"JWT_REFRESH_TTL"`

	TOTPIssuer string `mapstructure:"TOTP_ISSUER"`

	// GoogleClientID enables Google login when set.
	GoogleClientID string `mapstructure:"GOOGLE_CLIENT_ID"`

	SMTPAddr     string `mapstructure:"SMTP_ADDR"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`
	ResetURL     string `mapstructure:"RESET_URL"`

	SMSEndpoint string `mapstructure:"SMS_ENDPOINT"`
	SMSAPIKey   string `mapstructure:"SMS_API_KEY"`
	SMSSender   string `mapstructure:"SMS_SENDER"`

	NotifyWorkers       int     `mapstructure:"NOTIFY_WORKERS"`
	NotifyRatePerSecond float64 `mapstructure:"NOTIFY_RATE_PER_SECOND"`
	NotifyMaxAttempts   int     `mapstructure:"NOTIFY_MAX_ATTEMPTS"`

	FraudBruteForceThreshold int64 `mapstructure:"FRAUD_BRUTE_FORCE_THRESHOLD"`

	MetricsEnabled bool `mapstructure:"METRICS_ENABLED"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Environment variables override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // missing .env is fine

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("TRUST_PROXY", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_MIGRATE", true)
	v.SetDefault("JWT_SIGNING_KEY", "")
	v.SetDefault("JWT_ISSUER", "authgate")
	v.SetDefault("JWT_AUDIENCE", "")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h")
	v.SetDefault("TOTP_ISSUER", "authgate")
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("SMTP_ADDR", "")
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "")
	v.SetDefault("RESET_URL", "http://localhost:3000/reset-password")
	v.SetDefault("SMS_ENDPOINT", "")
	v.SetDefault("SMS_API_KEY", "")
	v.SetDefault("SMS_SENDER", "")
	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_RATE_PER_SECOND", 20)
	v.SetDefault("NOTIFY_MAX_ATTEMPTS", 5)
	v.SetDefault("FRAUD_BRUTE_FORCE_THRESHOLD", 10)
	v.SetDefault("METRICS_ENABLED", true)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the engine cannot default.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.RedisAddr == "" {
		return errors.New("config: REDIS_ADDR must be set")
	}
	if len(c.JWTSigningKey) < 32 {
		return errors.New("config: JWT_SIGNING_KEY must be at least 32 bytes")
	}
	if c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= 0 {
		return errors.New("config: JWT_ACCESS_TTL and JWT_REFRESH_TTL must be positive")
	}
	if c.SMTPAddr != "" && c.SMTPFrom == "" {
		return errors.New("config: SMTP_FROM is required with SMTP_ADDR")
	}
	if c.NotifyMaxAttempts < 1 {
		return errors.New("config: NOTIFY_MAX_ATTEMPTS must be at least 1")
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 15 * time.Second
	}
	return nil
}

// EngineConfig converts c into an authgate.Config on top of the defaults.
func (c *Config) EngineConfig() authgate.Config {
	cfg := authgate.DefaultConfig()
	cfg.JWT.PrivateKey = []byte(c.JWTSigningKey)
	cfg.JWT.Issuer = c.JWTIssuer
	cfg.JWT.Audience = c.JWTAudience
	cfg.JWT.AccessTTL = c.JWTAccessTTL
	cfg.JWT.RefreshTTL = c.JWTRefreshTTL
	cfg.TOTP.Issuer = c.TOTPIssuer
	cfg.Metrics.Enabled = c.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = c.MetricsEnabled
	return cfg
}
