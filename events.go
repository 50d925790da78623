package authgate

import (
	"context"
	"io"

	"github.com/authgate/authgate/internal/events"
)

// Event is an immutable login or account outcome delivered to every EventSink.
type Event = events.Event

// EventSink consumes events on dispatcher goroutines, never on the request path.
type EventSink = events.Sink

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc = events.SinkFunc

const (
	EventAccountRegistered    = "account.registered"
	EventLoginSuccess         = "login.success"
	EventLoginFailed          = "login.failed"
	EventPasswordReset        = "password.reset"
	EventAccountStatusChanged = "account.status_changed"
)

// NewJSONEventSink writes each event as one JSON line to w.
func NewJSONEventSink(w io.Writer) EventSink {
	return events.NewJSONWriterSink(w)
}

// publish stamps caller metadata from ctx onto ev and hands it to the
// dispatcher. It never blocks on sinks, and a full buffer holds it no longer
// than the operation deadline.
func (e *Engine) publish(ctx context.Context, ev Event) {
	if e == nil || e.events == nil {
		return
	}
	if ev.IP == "" {
		ev.IP = ClientIPFromContext(ctx)
	}
	if ev.UserAgent == "" {
		ev.UserAgent = userAgentFromContext(ctx)
	}
	e.events.Publish(ctx, ev)
}
