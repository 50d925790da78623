package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/authgate/authgate"
	"github.com/cenkalti/backoff/v5"
)

// ErrNoRoute is returned for a notification kind without a sender. It is
// permanent: the worker does not retry it.
var ErrNoRoute = errors.New("no sender for notification kind")

// Sender delivers one notification. Returning an error wrapped with
// backoff.Permanent stops retries.
type Sender interface {
	Send(ctx context.Context, n authgate.Notification) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, n authgate.Notification) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, n authgate.Notification) error {
	return f(ctx, n)
}

// Router dispatches by notification kind.
type Router struct {
	routes map[authgate.NotificationKind]Sender
}

// NewRouter returns an empty Router.
func NewRouter() *Router {
	return &Router{routes: make(map[authgate.NotificationKind]Sender)}
}

// Handle routes kind to s, replacing any previous sender.
func (r *Router) Handle(kind authgate.NotificationKind, s Sender) *Router {
	r.routes[kind] = s
	return r
}

// Send implements Sender.
func (r *Router) Send(ctx context.Context, n authgate.Notification) error {
	s, ok := r.routes[n.Kind]
	if !ok {
		return backoff.Permanent(fmt.Errorf("%w: %s", ErrNoRoute, n.Kind))
	}
	return s.Send(ctx, n)
}

// LogSender logs notifications instead of delivering them. Codes and tokens
// are not logged.
type LogSender struct {
	Logger *slog.Logger
}

// Send implements Sender.
func (s LogSender) Send(_ context.Context, n authgate.Notification) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification (log sender)",
		slog.String("kind", string(n.Kind)),
		slog.String("to", n.To),
		slog.String("account_id", n.AccountID),
		slog.Bool("has_code", n.Code != ""),
		slog.Bool("has_token", n.Token != ""),
	)
	return nil
}
