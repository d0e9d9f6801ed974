package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.JWTIssuer != "workforce-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "workforce-auth")
	}
	if cfg.JWTAudience != "workforce-mobile" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "workforce-mobile")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.CodeReturnToClient {
		t.Error("CodeReturnToClient should default to false")
	}
	if got := cfg.AccessTTL(); got != 24*time.Hour {
		t.Errorf("AccessTTL = %v, want 24h", got)
	}
	if got := cfg.RefreshTTL(); got != 168*time.Hour {
		t.Errorf("RefreshTTL = %v, want 168h", got)
	}
	if got := cfg.QuickLoginTTL(); got != 720*time.Hour {
		t.Errorf("QuickLoginTTL = %v, want 720h", got)
	}
	if got := cfg.QuickLoginActivityWindow(); got != 24*time.Hour {
		t.Errorf("QuickLoginActivityWindow = %v, want 24h", got)
	}
	if got := cfg.VerificationCodeTTL(); got != 10*time.Minute {
		t.Errorf("VerificationCodeTTL = %v, want 10m", got)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "14")
	os.Setenv("QUICK_LOGIN_TTL", "48h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
	if got := cfg.QuickLoginTTL(); got != 48*time.Hour {
		t.Errorf("QuickLoginTTL = %v, want 48h", got)
	}
}

func TestLoad_DevCodeModeRejectedInProduction(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("CODE_RETURN_TO_CLIENT", "true")
	os.Setenv("APP_ENV", "production")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for dev code mode in production")
	}
}

func TestLoad_InvalidBcryptCost(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("BCRYPT_COST", "99")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for out-of-range BCRYPT_COST")
	}
}

func TestDurationFallbacks(t *testing.T) {
	cfg := &Config{
		JWTAccessTTL:                "garbage",
		JWTRefreshTTL:               "",
		QuickLoginTTLRaw:            "-5h",
		QuickLoginActivityWindowRaw: "bogus",
		VerificationCodeTTLRaw:      "",
	}
	if got := cfg.AccessTTL(); got != 24*time.Hour {
		t.Errorf("AccessTTL fallback = %v, want 24h", got)
	}
	if got := cfg.RefreshTTL(); got != 168*time.Hour {
		t.Errorf("RefreshTTL fallback = %v, want 168h", got)
	}
	if got := cfg.QuickLoginTTL(); got != 720*time.Hour {
		t.Errorf("QuickLoginTTL fallback = %v, want 720h", got)
	}
	if got := cfg.QuickLoginActivityWindow(); got != 24*time.Hour {
		t.Errorf("QuickLoginActivityWindow fallback = %v, want 24h", got)
	}
	if got := cfg.VerificationCodeTTL(); got != 10*time.Minute {
		t.Errorf("VerificationCodeTTL fallback = %v, want 10m", got)
	}
}
