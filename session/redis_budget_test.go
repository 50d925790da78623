package session

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// cmdCounter is a go-redis hook counting commands and pipeline round-trips.
type cmdCounter struct {
	commands  atomic.Int64
	pipelines atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.commands.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.pipelines.Add(1)
		h.commands.Add(int64(len(cmds)))
		return next(ctx, cmds)
	}
}

func (h *cmdCounter) Reset() {
	h.commands.Store(0)
	h.pipelines.Store(0)
}

func (h *cmdCounter) Commands() int64 { return h.commands.Load() }

func newCountedStore(t *testing.T) (*Store, *cmdCounter) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	counter := &cmdCounter{}
	rdb.AddHook(counter)

	// The first command may carry connection handshake noise.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}
	counter.Reset()

	return NewStore(rdb, "session"), counter
}

func TestRedisBudget(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name   string
		budget int64
		op     func(*Store) error
	}{
		{"save", 1, func(s *Store) error { return s.Save(ctx, "acct-1", "fresh", time.Hour) }},
		{"exists", 1, func(s *Store) error { _, err := s.Exists(ctx, "acct-1", "tok-1"); return err }},
		{"consume", 1, func(s *Store) error { _, err := s.Consume(ctx, "acct-1", "tok-1"); return err }},
		{"ttl", 1, func(s *Store) error { _, err := s.TTL(ctx, "acct-1", "tok-1"); return err }},
		// One SCAN page plus one batched DEL.
		{"delete all", 2, func(s *Store) error { _, err := s.DeleteAll(ctx, "acct-1"); return err }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, counter := newCountedStore(t)
			for _, tok := range []string{"tok-1", "tok-2", "tok-3"} {
				if err := store.Save(ctx, "acct-1", tok, time.Hour); err != nil {
					t.Fatalf("seed: %v", err)
				}
			}
			counter.Reset()

			if err := tc.op(store); err != nil {
				t.Fatalf("%s: %v", tc.name, err)
			}
			if got := counter.Commands(); got > tc.budget {
				t.Errorf("%s used %d Redis commands; budget is %d", tc.name, got, tc.budget)
			}
		})
	}
}

func TestInvalidRecordSkipsRedis(t *testing.T) {
	store, counter := newCountedStore(t)
	ctx := context.Background()

	_ = store.Save(ctx, "", "tok", time.Hour)
	_, _ = store.Consume(ctx, "acct", "")
	_, _ = store.DeleteAll(ctx, "")

	if got := counter.Commands(); got != 0 {
		t.Fatalf("invalid records reached Redis with %d commands", got)
	}
}
