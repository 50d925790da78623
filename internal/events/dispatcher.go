package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering and concurrency.
type Config struct {
	BufferSize  int
	Workers     int
	DropIfFull  bool
	SinkTimeout time.Duration
}

// Dispatcher relays events from publishers to sinks on its own goroutines.
// Publishers never wait on sinks; a slow or failing sink only affects the
// worker delivering to it.
type Dispatcher struct {
	cfg       Config
	sinks     []Sink
	logger    *slog.Logger
	ch        chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	delivered atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts cfg.Workers delivery goroutines. It returns nil when
// there are no sinks, and a nil Dispatcher accepts and discards events.
func NewDispatcher(cfg Config, logger *slog.Logger, sinks ...Sink) *Dispatcher {
	live := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	if len(live) == 0 {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		cfg:    cfg,
		sinks:  live,
		logger: logger,
		ch:     make(chan Event, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.run()
	}

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.done:
			for {
				select {
				case event := <-d.ch:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(event Event) {
	for _, sink := range d.sinks {
		d.deliverOne(sink, event)
	}
	d.delivered.Add(1)
}

func (d *Dispatcher) deliverOne(sink Sink, event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SinkTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event sink panicked",
				slog.String("event_type", event.Type),
				slog.Any("panic", r),
			)
		}
	}()
	sink.Emit(ctx, event)
}

// Publish enqueues event. With DropIfFull it never blocks; otherwise it
// waits for buffer space until ctx is done.
func (d *Dispatcher) Publish(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	// Buffer space wins over an already expired ctx.
	select {
	case d.ch <- event:
		return
	default:
	}
	select {
	case d.ch <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.done:
	}
}

// Close stops accepting events and waits for the buffer to drain.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped returns how many events were discarded because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Delivered returns how many events were handed to every sink.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
