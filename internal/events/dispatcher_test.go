package events

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcherFansOutToAllSinks(t *testing.T) {
	a := NewChannelSink(4)
	b := NewChannelSink(4)
	d := NewDispatcher(Config{BufferSize: 4, Workers: 2}, quietLogger(), a, b)

	d.Publish(context.Background(), Event{Type: "login.success", AccountID: "acct-1"})
	d.Close()

	for name, sink := range map[string]*ChannelSink{"a": a, "b": b} {
		select {
		case ev := <-sink.Events():
			if ev.Type != "login.success" || ev.Timestamp.IsZero() {
				t.Fatalf("sink %s got unexpected event %+v", name, ev)
			}
		default:
			t.Fatalf("sink %s received nothing", name)
		}
	}
	if d.Delivered() != 1 {
		t.Fatalf("expected 1 delivered, got %d", d.Delivered())
	}
}

func TestDispatcherRecoversSinkPanic(t *testing.T) {
	var after atomic.Int32
	panicky := SinkFunc(func(context.Context, Event) { panic("boom") })
	counting := SinkFunc(func(context.Context, Event) { after.Add(1) })

	d := NewDispatcher(Config{BufferSize: 2}, quietLogger(), panicky, counting)
	d.Publish(context.Background(), Event{Type: "login.failed"})
	d.Publish(context.Background(), Event{Type: "login.failed"})
	d.Close()

	if after.Load() != 2 {
		t.Fatalf("expected later sink to see both events, got %d", after.Load())
	}
}

func TestDispatcherDropIfFull(t *testing.T) {
	block := make(chan struct{})
	var once sync.Once
	slow := SinkFunc(func(ctx context.Context, _ Event) {
		once.Do(func() { <-block })
	})

	d := NewDispatcher(Config{BufferSize: 1, Workers: 1, DropIfFull: true}, quietLogger(), slow)
	for i := 0; i < 10; i++ {
		d.Publish(context.Background(), Event{Type: "login.failed"})
	}
	close(block)
	d.Close()

	if d.Dropped() == 0 {
		t.Fatal("expected some events to be dropped")
	}
}

func TestDispatcherPublishDoesNotWaitForSink(t *testing.T) {
	release := make(chan struct{})
	slow := SinkFunc(func(ctx context.Context, _ Event) {
		select {
		case <-release:
		case <-ctx.Done():
		}
	})
	d := NewDispatcher(Config{BufferSize: 8, SinkTimeout: time.Second}, quietLogger(), slow)
	defer func() {
		close(release)
		d.Close()
	}()

	start := time.Now()
	d.Publish(context.Background(), Event{Type: "login.success"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("publish blocked on a slow sink")
	}
}

func TestDispatcherPublishWaitEndsWithContext(t *testing.T) {
	release := make(chan struct{})
	slow := SinkFunc(func(ctx context.Context, _ Event) {
		select {
		case <-release:
		case <-ctx.Done():
		}
	})
	d := NewDispatcher(Config{BufferSize: 1, Workers: 1, SinkTimeout: 2 * time.Second}, quietLogger(), slow)
	defer func() {
		close(release)
		d.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	for i := 0; i < 3; i++ {
		d.Publish(ctx, Event{Type: "login.failed"})
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("publish outlived its context: %v", elapsed)
	}
	if d.Dropped() == 0 {
		t.Fatal("expected the event that found no buffer space to be dropped")
	}
}

func TestDispatcherPublishPrefersBufferOverDoneContext(t *testing.T) {
	sink := NewChannelSink(1)
	d := NewDispatcher(Config{BufferSize: 1, Workers: 1}, quietLogger(), sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Publish(ctx, Event{Type: "login.success"})
	d.Close()

	if d.Dropped() != 0 || d.Delivered() != 1 {
		t.Fatalf("expected delivery with free buffer, dropped=%d delivered=%d", d.Dropped(), d.Delivered())
	}
}

func TestNilDispatcherIsSafe(t *testing.T) {
	d := NewDispatcher(Config{}, quietLogger())
	if d != nil {
		t.Fatal("expected nil dispatcher without sinks")
	}
	d.Publish(context.Background(), Event{Type: "x"})
	d.Close()
	if d.Dropped() != 0 || d.Delivered() != 0 {
		t.Fatal("nil dispatcher counters must be zero")
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSONWriterSink(&buf)
	s.Emit(context.Background(), Event{Type: "account.registered", AccountID: "acct-1", Success: true})

	var got map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &got); err != nil {
		t.Fatalf("invalid json line: %v", err)
	}
	if got["type"] != "account.registered" || got["account_id"] != "acct-1" {
		t.Fatalf("unexpected json: %v", got)
	}
}
