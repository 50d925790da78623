package fraud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/authgate/authgate"
	"github.com/authgate/authgate/internal/rate"
	"github.com/redis/go-redis/v9"
)

// SignalKind names what a Signal reports.
type SignalKind string

const (
	SignalNewLocation SignalKind = "new_location"
	SignalBruteForce  SignalKind = "brute_force"
)

// Signal is one observation handed to Hooks.
type Signal struct {
	Kind       SignalKind
	AccountID  string
	IP         string
	PreviousIP string
	Attempts   int64
	At         time.Time
}

// Hooks are alerting extension points. Nil hooks are skipped. They run on
// the dispatcher goroutine with the sink deadline, so they must not block.
type Hooks struct {
	OnNewLocation func(ctx context.Context, s Signal)
	OnBruteForce  func(ctx context.Context, s Signal)
}

// Config controls key names, lifetimes and the brute-force threshold.
type Config struct {
	LastIPPrefix        string
	LastIPTTL           time.Duration
	FailurePrefix       string
	FailureWindow       time.Duration
	BruteForceThreshold int64
}

// DefaultConfig returns the documented key layout and thresholds.
func DefaultConfig() Config {
	return Config{
		LastIPPrefix:        "user",
		LastIPTTL:           30 * 24 * time.Hour,
		FailurePrefix:       "brute_force_attempts",
		FailureWindow:       time.Hour,
		BruteForceThreshold: 10,
	}
}

// Processor is the fraud signal sink.
type Processor struct {
	redis   redis.UniversalClient
	counter *rate.Limiter
	config  Config
	hooks   Hooks
	logger  *slog.Logger
	metrics *collectors
}

var _ authgate.EventSink = (*Processor)(nil)

// NewProcessor creates a Processor. Zero Config fields fall back to
// DefaultConfig values; a nil logger discards.
func NewProcessor(redisClient redis.UniversalClient, cfg Config, hooks Hooks, logger *slog.Logger) *Processor {
	def := DefaultConfig()
	if cfg.LastIPPrefix == "" {
		cfg.LastIPPrefix = def.LastIPPrefix
	}
	if cfg.LastIPTTL <= 0 {
		cfg.LastIPTTL = def.LastIPTTL
	}
	if cfg.FailurePrefix == "" {
		cfg.FailurePrefix = def.FailurePrefix
	}
	if cfg.FailureWindow <= 0 {
		cfg.FailureWindow = def.FailureWindow
	}
	if cfg.BruteForceThreshold <= 0 {
		cfg.BruteForceThreshold = def.BruteForceThreshold
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Processor{
		redis:   redisClient,
		counter: rate.New(redisClient),
		config:  cfg,
		hooks:   hooks,
		logger:  logger,
		metrics: newCollectors(),
	}
}

// Emit implements authgate.EventSink. Only login outcomes carrying an IP
// are inspected.
func (p *Processor) Emit(ctx context.Context, ev authgate.Event) {
	if p == nil || ev.IP == "" {
		return
	}

	var err error
	switch ev.Type {
	case authgate.EventLoginSuccess:
		err = p.onLoginSuccess(ctx, ev)
	case authgate.EventLoginFailed:
		err = p.onLoginFailed(ctx, ev)
	default:
		return
	}
	if err != nil {
		p.metrics.errors.Inc()
		p.logger.Warn("fraud signal processing failed",
			slog.String("event_type", ev.Type),
			slog.String("error", err.Error()),
		)
		return
	}
	p.metrics.processed.WithLabelValues(ev.Type).Inc()
}

func (p *Processor) onLoginSuccess(ctx context.Context, ev authgate.Event) error {
	if ev.AccountID == "" {
		return nil
	}

	// SET ... GET swaps in the new IP and returns the old one atomically.
	previous, err := p.redis.SetArgs(ctx, p.lastIPKey(ev.AccountID), ev.IP, redis.SetArgs{
		TTL: p.config.LastIPTTL,
		Get: true,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("update last ip: %w", err)
	}
	if previous == "" || previous == ev.IP {
		return nil
	}

	s := Signal{
		Kind:       SignalNewLocation,
		AccountID:  ev.AccountID,
		IP:         ev.IP,
		PreviousIP: previous,
		At:         eventTime(ev),
	}
	p.metrics.signals.WithLabelValues(string(s.Kind)).Inc()
	p.logger.Warn("login from new location",
		slog.String("account_id", s.AccountID),
		slog.String("ip", s.IP),
		slog.String("previous_ip", s.PreviousIP),
	)
	if p.hooks.OnNewLocation != nil {
		p.hooks.OnNewLocation(ctx, s)
	}
	return nil
}

func (p *Processor) onLoginFailed(ctx context.Context, ev authgate.Event) error {
	attempts, err := p.counter.Hit(ctx, p.failureKey(ev.IP), p.config.FailureWindow)
	if err != nil {
		return fmt.Errorf("count failed login: %w", err)
	}
	// Signal once per window, on the attempt that crosses the threshold.
	if attempts != p.config.BruteForceThreshold+1 {
		return nil
	}

	s := Signal{
		Kind:      SignalBruteForce,
		AccountID: ev.AccountID,
		IP:        ev.IP,
		Attempts:  attempts,
		At:        eventTime(ev),
	}
	p.metrics.signals.WithLabelValues(string(s.Kind)).Inc()
	p.logger.Warn("brute force suspected",
		slog.String("ip", s.IP),
		slog.Int64("attempts", s.Attempts),
	)
	if p.hooks.OnBruteForce != nil {
		p.hooks.OnBruteForce(ctx, s)
	}
	return nil
}

// LastIP returns the last successful login IP of accountID, or "".
func (p *Processor) LastIP(ctx context.Context, accountID string) (string, error) {
	ip, err := p.redis.Get(ctx, p.lastIPKey(accountID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return ip, err
}

// FailedAttempts returns the failed logins counted for ip in the current window.
func (p *Processor) FailedAttempts(ctx context.Context, ip string) (int64, error) {
	return p.counter.Count(ctx, p.failureKey(ip))
}

func (p *Processor) lastIPKey(accountID string) string {
	return p.config.LastIPPrefix + ":" + accountID + ":last_ip"
}

func (p *Processor) failureKey(ip string) string {
	return rate.Key(p.config.FailurePrefix, ip)
}

func eventTime(ev authgate.Event) time.Time {
	if ev.Timestamp.IsZero() {
		return time.Now().UTC()
	}
	return ev.Timestamp
}
