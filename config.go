package authgate

import (
	"errors"
	"time"
)

// Config holds every tunable of the Engine. Start from DefaultConfig and
// override fields; Builder.Build validates the result.
type Config struct {
	JWT              JWTConfig
	Session          SessionConfig
	Password         PasswordConfig
	TOTP             TOTPConfig
	PhoneOTP         PhoneOTPConfig
	MFA              MFAConfig
	Events           EventsConfig
	Metrics          MetricsConfig
	Notifications    NotificationConfig
	OperationTimeout time.Duration
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls signing and lifetimes of the four token types.
type JWTConfig struct {
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	MFAPendingTTL    time.Duration
	PasswordResetTTL time.Duration
	SigningMethod    string // "hs256" (default) or "ed25519"
	PrivateKey       []byte
	PublicKey        []byte
	Issuer           string
	Audience         string
	Leeway           time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the Redis session registry. A session record lives
// as long as the refresh token it guards (JWT.RefreshTTL).
type SessionConfig struct {
	RedisPrefix string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id parameters and the two password policies.
type PasswordConfig struct {
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool

	// ResetRedisPrefix keys the single-use markers of password-reset tokens.
	ResetRedisPrefix string

	RegistrationMinLength int
	ResetMinLength        int
	MaxLength             int
}

/*
====================================
TOTP CONFIG
====================================
*/

// TOTPConfig controls RFC 6238 code generation and the failure limiter.
type TOTPConfig struct {
	Issuer      string
	Digits      int
	Period      int
	Algorithm   string
	Skew        int
	MaxFailures int
	FailWindow  time.Duration

	// EnforceReplayProtection rejects a code whose time step was already
	// accepted for the same account.
	EnforceReplayProtection bool
	ReplayRedisPrefix       string
}

/*
====================================
PHONE OTP CONFIG
====================================
*/

// PhoneOTPConfig controls SMS one-time codes and their per-phone issuance cap.
type PhoneOTPConfig struct {
	Digits          int
	TTL             time.Duration
	MaxIssues       int
	IssueWindow     time.Duration
	RedisPrefix     string
	RateLimitPrefix string
}

/*
====================================
MFA CONFIG
====================================
*/

// MFAConfig controls the single-use markers of MFA pending tokens.
type MFAConfig struct {
	RedisPrefix string
}

/*
====================================
EVENTS CONFIG
====================================
*/

// EventsConfig sizes the asynchronous event dispatcher.
type EventsConfig struct {
	BufferSize  int
	Workers     int
	DropIfFull  bool
	SinkTimeout time.Duration
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
NOTIFICATION CONFIG
====================================
*/

// NotificationConfig bounds how long the Engine waits on Notifier.Enqueue.
type NotificationConfig struct {
	EnqueueTimeout time.Duration
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults. JWT.PrivateKey is empty and
// must be provided.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:        15 * time.Minute,
			RefreshTTL:       7 * 24 * time.Hour,
			MFAPendingTTL:    5 * time.Minute,
			PasswordResetTTL: 15 * time.Minute,
			SigningMethod:    "hs256",
		},
		Session: SessionConfig{
			RedisPrefix: "session",
		},
		Password: PasswordConfig{
			Memory:                65536,
			Time:                  3,
			Parallelism:           2,
			SaltLength:            16,
			KeyLength:             32,
			UpgradeOnLogin:        true,
			ResetRedisPrefix:      "reset_used",
			RegistrationMinLength: 12,
			ResetMinLength:        8,
			MaxLength:             64,
		},
		TOTP: TOTPConfig{
			Issuer:      "authgate",
			Digits:      6,
			Period:      30,
			Algorithm:   "SHA1",
			Skew:        1,
			MaxFailures: 5,
			FailWindow:  time.Minute,

			EnforceReplayProtection: true,
			ReplayRedisPrefix:       "totp_used",
		},
		PhoneOTP: PhoneOTPConfig{
			Digits:          6,
			TTL:             300 * time.Second,
			MaxIssues:       3,
			IssueWindow:     time.Hour,
			RedisPrefix:     "otp",
			RateLimitPrefix: "otp_limit",
		},
		MFA: MFAConfig{
			RedisPrefix: "mfa_used",
		},
		Events: EventsConfig{
			BufferSize:  1024,
			Workers:     2,
			DropIfFull:  true,
			SinkTimeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Notifications: NotificationConfig{
			EnqueueTimeout: 2 * time.Second,
		},
		OperationTimeout: 5 * time.Second,
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid field of c.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be > AccessTTL")
	}
	if c.JWT.MFAPendingTTL <= 0 {
		return errors.New("JWT MFAPendingTTL must be > 0")
	}
	if c.JWT.PasswordResetTTL <= 0 {
		return errors.New("JWT PasswordResetTTL must be > 0")
	}
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if len(c.JWT.PrivateKey) == 0 {
		return errors.New(c.JWT.SigningMethod + " requires PrivateKey")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) < 32 {
		return errors.New("hs256 PrivateKey must be >= 32 bytes")
	}
	if c.JWT.Leeway < 0 {
		return errors.New("JWT Leeway must be >= 0")
	}

	// Session
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.ResetMinLength < 8 {
		return errors.New("Password ResetMinLength must be >= 8")
	}
	if c.Password.RegistrationMinLength < c.Password.ResetMinLength {
		return errors.New("Password RegistrationMinLength must be >= ResetMinLength")
	}
	if c.Password.MaxLength < c.Password.RegistrationMinLength {
		return errors.New("Password MaxLength must be >= RegistrationMinLength")
	}

	// TOTP
	if c.TOTP.Digits != 6 && c.TOTP.Digits != 8 {
		return errors.New("TOTP Digits must be 6 or 8")
	}
	if c.TOTP.Period <= 0 {
		return errors.New("TOTP Period must be > 0")
	}
	if c.TOTP.Skew < 0 || c.TOTP.Skew > 3 {
		return errors.New("TOTP Skew must be between 0 and 3")
	}
	switch c.TOTP.Algorithm {
	case "SHA1", "SHA256", "SHA512":
	default:
		return errors.New("TOTP Algorithm must be SHA1, SHA256 or SHA512")
	}
	if c.TOTP.MaxFailures <= 0 || c.TOTP.FailWindow <= 0 {
		return errors.New("TOTP MaxFailures and FailWindow must be > 0")
	}

	// Phone OTP
	if c.PhoneOTP.Digits < 4 || c.PhoneOTP.Digits > 10 {
		return errors.New("PhoneOTP Digits must be between 4 and 10")
	}
	if c.PhoneOTP.TTL <= 0 {
		return errors.New("PhoneOTP TTL must be > 0")
	}
	if c.PhoneOTP.MaxIssues <= 0 || c.PhoneOTP.IssueWindow <= 0 {
		return errors.New("PhoneOTP MaxIssues and IssueWindow must be > 0")
	}
	if c.PhoneOTP.RedisPrefix == "" || c.PhoneOTP.RateLimitPrefix == "" {
		return errors.New("PhoneOTP prefixes must not be empty")
	}
	if c.PhoneOTP.RedisPrefix == c.PhoneOTP.RateLimitPrefix {
		return errors.New("PhoneOTP RedisPrefix and RateLimitPrefix must differ")
	}

	// MFA
	if c.MFA.RedisPrefix == "" {
		return errors.New("MFA RedisPrefix must not be empty")
	}
	if c.TOTP.EnforceReplayProtection && c.TOTP.ReplayRedisPrefix == "" {
		return errors.New("TOTP ReplayRedisPrefix must not be empty")
	}
	if c.Password.ResetRedisPrefix == "" {
		return errors.New("Password ResetRedisPrefix must not be empty")
	}

	// Events
	if c.Events.BufferSize <= 0 {
		return errors.New("Events BufferSize must be > 0")
	}
	if c.Events.Workers <= 0 {
		return errors.New("Events Workers must be > 0")
	}

	// Notifications
	if c.Notifications.EnqueueTimeout <= 0 {
		return errors.New("Notifications EnqueueTimeout must be > 0")
	}

	if c.OperationTimeout <= 0 {
		return errors.New("OperationTimeout must be > 0")
	}

	return nil
}
