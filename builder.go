package authgate

import (
	"errors"
	"log/slog"

	"github.com/authgate/authgate/internal/events"
	"github.com/authgate/authgate/internal/flows"
	"github.com/authgate/authgate/internal/limiters"
	"github.com/authgate/authgate/internal/rate"
	"github.com/authgate/authgate/internal/stores"
	"github.com/authgate/authgate/jwt"
	"github.com/authgate/authgate/password"
	"github.com/authgate/authgate/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine from configuration and collaborators.
// A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	repo     CredentialRepository
	verifier IdentityVerifier
	notifier Notifier
	sinks    []EventSink
	logger   *slog.Logger

	built bool
}

// New describes the new operation and its observable behavior.
//
// New returns a Builder seeded with DefaultConfig. It performs no I/O.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The byte slices are copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the ephemeral store backing sessions, codes and counters.
// Single-node, cluster and ring clients are all accepted.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialRepository sets the persistent account store. Required.
func (b *Builder) WithCredentialRepository(repo CredentialRepository) *Builder {
	b.repo = repo
	return b
}

// WithIdentityVerifier enables LoginWithGoogle.
func (b *Builder) WithIdentityVerifier(v IdentityVerifier) *Builder {
	b.verifier = v
	return b
}

// WithNotifier sets the delivery collaborator for welcome, reset and OTP jobs.
// Without one, jobs are logged and discarded.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithEventSink adds a consumer of login and account events. May be called
// more than once; every sink receives every event.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	if sink != nil {
		b.sinks = append(b.sinks, sink)
	}
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles per-operation latency histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build validates the configuration, constructs every internal component and
// starts the event dispatcher workers. It fails when Redis or the credential
// repository is missing, or when the configuration is invalid.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.repo == nil {
		return nil, errors.New("credential repository required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := &Engine{
		config:   cloneConfig(cfg),
		repo:     b.repo,
		verifier: b.verifier,
		notifier: b.notifier,
		logger:   logger,
	}

	// -------- EPHEMERAL STORES --------
	counter := rate.New(b.redis)
	engine.sessionStore = session.NewStore(b.redis, cfg.Session.RedisPrefix)
	engine.otpStore = stores.NewPhoneOTPStore(b.redis, cfg.PhoneOTP.RedisPrefix)
	engine.mfaChallenges = stores.NewSingleUseStore(b.redis, cfg.MFA.RedisPrefix)
	engine.resetTokens = stores.NewSingleUseStore(b.redis, cfg.Password.ResetRedisPrefix)
	if cfg.TOTP.EnforceReplayProtection {
		engine.totpReplay = stores.NewSingleUseStore(b.redis, cfg.TOTP.ReplayRedisPrefix)
	}
	engine.otpLimiter = limiters.NewPhoneOTPLimiter(counter, limiters.PhoneOTPLimiterConfig{
		KeyPrefix: cfg.PhoneOTP.RateLimitPrefix,
		MaxIssues: cfg.PhoneOTP.MaxIssues,
		Window:    cfg.PhoneOTP.IssueWindow,
	})
	engine.totpLimiter = limiters.NewTOTPLimiter(counter, limiters.TOTPLimiterConfig{
		MaxAttempts: cfg.TOTP.MaxFailures,
		Cooldown:    cfg.TOTP.FailWindow,
	})

	// -------- CRYPTO --------
	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph
	engine.registrationPolicy = password.Policy{
		MinLength:     cfg.Password.RegistrationMinLength,
		MaxLength:     cfg.Password.MaxLength,
		RequireMixed:  true,
		RequireDigit:  true,
		RequireSymbol: true,
	}
	engine.resetPolicy = password.Policy{
		MinLength: cfg.Password.ResetMinLength,
		MaxLength: cfg.Password.MaxLength,
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:        cfg.JWT.AccessTTL,
		RefreshTTL:       cfg.JWT.RefreshTTL,
		MFAPendingTTL:    cfg.JWT.MFAPendingTTL,
		PasswordResetTTL: cfg.JWT.PasswordResetTTL,
		SigningMethod:    jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:       cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:        cloneBytes(cfg.JWT.PublicKey),
		Issuer:           cfg.JWT.Issuer,
		Audience:         cfg.JWT.Audience,
		Leeway:           cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm
	engine.totp = newTOTPManager(cfg.TOTP)

	// -------- OBSERVABILITY --------
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.events = events.NewDispatcher(events.Config{
		BufferSize:  cfg.Events.BufferSize,
		Workers:     cfg.Events.Workers,
		DropIfFull:  cfg.Events.DropIfFull,
		SinkTimeout: cfg.Events.SinkTimeout,
	}, logger, b.sinks...)

	// -------- FLOWS --------
	engine.flows = flows.New(engine.buildFlowDeps())

	b.built = true

	return engine, nil
}
