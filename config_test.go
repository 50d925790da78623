package authgate

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults with key valid",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "hs256 short key invalid",
			mutate: func(c *Config) {
				c.JWT.PrivateKey = []byte("0123456789")
			},
			wantValid: false,
		},
		{
			name: "missing key invalid",
			mutate: func(c *Config) {
				c.JWT.PrivateKey = nil
			},
			wantValid: false,
		},
		{
			name: "ed25519 without public key invalid",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "ed25519"
			},
			wantValid: false,
		},
		{
			name: "jwt signing invalid",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "rs256"
			},
			wantValid: false,
		},
		{
			name: "refresh not longer than access invalid",
			mutate: func(c *Config) {
				c.JWT.RefreshTTL = c.JWT.AccessTTL
			},
			wantValid: false,
		},
		{
			name: "negative leeway invalid",
			mutate: func(c *Config) {
				c.JWT.Leeway = -time.Second
			},
			wantValid: false,
		},
		{
			name: "reset min above registration min invalid",
			mutate: func(c *Config) {
				c.Password.ResetMinLength = 16
			},
			wantValid: false,
		},
		{
			name: "max length below registration min invalid",
			mutate: func(c *Config) {
				c.Password.MaxLength = 10
			},
			wantValid: false,
		},
		{
			name: "argon2 memory too low invalid",
			mutate: func(c *Config) {
				c.Password.Memory = 1024
			},
			wantValid: false,
		},
		{
			name: "totp eight digits valid",
			mutate: func(c *Config) {
				c.TOTP.Digits = 8
			},
			wantValid: true,
		},
		{
			name: "totp seven digits invalid",
			mutate: func(c *Config) {
				c.TOTP.Digits = 7
			},
			wantValid: false,
		},
		{
			name: "totp sha512 valid",
			mutate: func(c *Config) {
				c.TOTP.Algorithm = "SHA512"
			},
			wantValid: true,
		},
		{
			name: "totp md5 invalid",
			mutate: func(c *Config) {
				c.TOTP.Algorithm = "MD5"
			},
			wantValid: false,
		},
		{
			name: "totp skew too wide invalid",
			mutate: func(c *Config) {
				c.TOTP.Skew = 4
			},
			wantValid: false,
		},
		{
			name: "replay prefix required when enforced",
			mutate: func(c *Config) {
				c.TOTP.ReplayRedisPrefix = ""
			},
			wantValid: false,
		},
		{
			name: "replay prefix optional when not enforced",
			mutate: func(c *Config) {
				c.TOTP.EnforceReplayProtection = false
				c.TOTP.ReplayRedisPrefix = ""
			},
			wantValid: true,
		},
		{
			name: "phone otp three digits invalid",
			mutate: func(c *Config) {
				c.PhoneOTP.Digits = 3
			},
			wantValid: false,
		},
		{
			name: "phone otp prefixes collide invalid",
			mutate: func(c *Config) {
				c.PhoneOTP.RateLimitPrefix = c.PhoneOTP.RedisPrefix
			},
			wantValid: false,
		},
		{
			name: "events zero workers invalid",
			mutate: func(c *Config) {
				c.Events.Workers = 0
			},
			wantValid: false,
		},
		{
			name: "zero operation timeout invalid",
			mutate: func(c *Config) {
				c.OperationTimeout = 0
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected invalid config")
			}
		})
	}
}

func TestDefaultConfigMatchesDocumentedPolicy(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.JWT.AccessTTL != 15*time.Minute || cfg.JWT.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("unexpected token lifetimes %v/%v", cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	}
	if cfg.JWT.MFAPendingTTL != 5*time.Minute || cfg.JWT.PasswordResetTTL != 15*time.Minute {
		t.Fatalf("unexpected mfa/reset lifetimes %v/%v", cfg.JWT.MFAPendingTTL, cfg.JWT.PasswordResetTTL)
	}
	if cfg.PhoneOTP.TTL != 300*time.Second || cfg.PhoneOTP.MaxIssues != 3 || cfg.PhoneOTP.IssueWindow != time.Hour {
		t.Fatalf("unexpected phone otp policy %+v", cfg.PhoneOTP)
	}
	if cfg.TOTP.MaxFailures != 5 || cfg.TOTP.FailWindow != time.Minute {
		t.Fatalf("unexpected totp limiter policy %d/%v", cfg.TOTP.MaxFailures, cfg.TOTP.FailWindow)
	}
	if cfg.Password.RegistrationMinLength != 12 || cfg.Password.ResetMinLength != 8 {
		t.Fatalf("unexpected password minimums %d/%d", cfg.Password.RegistrationMinLength, cfg.Password.ResetMinLength)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("default config without a signing key must not validate")
	}
}
