// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "workforce-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "workforce-mobile").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "24h").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// QuickLoginTTLRaw is how long after a full login the device may quick-login (e.g. "720h" for 30 days).
	QuickLoginTTLRaw string `mapstructure:"QUICK_LOGIN_TTL"`
	// QuickLoginActivityWindowRaw is the maximum idle time before quick login demands a password again (e.g. "24h").
	QuickLoginActivityWindowRaw string `mapstructure:"QUICK_LOGIN_ACTIVITY_WINDOW"`
	// VerificationCodeTTLRaw is the email verification code lifetime (e.g. "10m").
	VerificationCodeTTLRaw string `mapstructure:"VERIFICATION_CODE_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// CodeReturnToClient when true enables dev code mode: no email delivery, the
	// code is stored for GET /v1/dev/verification-code. Must not be true when Env
	// is production (rejected at startup).
	CodeReturnToClient bool `mapstructure:"CODE_RETURN_TO_CLIENT"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// OTLPEndpoint is the OTLP gRPC collector endpoint (e.g. "localhost:4317"); empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_ISSUER", "workforce-auth")
	v.SetDefault("JWT_AUDIENCE", "workforce-mobile")
	v.SetDefault("JWT_ACCESS_TTL", "24h")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("QUICK_LOGIN_TTL", "720h") // 30d
	v.SetDefault("QUICK_LOGIN_ACTIVITY_WINDOW", "24h")
	v.SetDefault("VERIFICATION_CODE_TTL", "10m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("CODE_RETURN_TO_CLIENT", false)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.CodeReturnToClient && cfg.Env == "production" {
		return nil, errors.New("config: CODE_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return parseDuration(c.JWTAccessTTL, 24*time.Hour)
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return parseDuration(c.JWTRefreshTTL, 168*time.Hour)
}

// QuickLoginTTL parses QUICK_LOGIN_TTL. Returns 720h (30 days) if unset or invalid.
func (c *Config) QuickLoginTTL() time.Duration {
	return parseDuration(c.QuickLoginTTLRaw, 720*time.Hour)
}

// QuickLoginActivityWindow parses QUICK_LOGIN_ACTIVITY_WINDOW. Returns 24h if unset or invalid.
func (c *Config) QuickLoginActivityWindow() time.Duration {
	return parseDuration(c.QuickLoginActivityWindowRaw, 24*time.Hour)
}

// VerificationCodeTTL parses VERIFICATION_CODE_TTL. Returns 10m if unset or invalid.
func (c *Config) VerificationCodeTTL() time.Duration {
	return parseDuration(c.VerificationCodeTTLRaw, 10*time.Minute)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
