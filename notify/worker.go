package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// WorkerConfig tunes delivery.
type WorkerConfig struct {
	Concurrency int
	// PollTimeout bounds each blocking dequeue so shutdown is noticed.
	PollTimeout time.Duration
	// RatePerSecond throttles sends across all goroutines. Zero disables it.
	RatePerSecond float64
	Burst         int

	MaxAttempts     int
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
	SendTimeout     time.Duration
}

// DefaultWorkerConfig returns five attempts with backoff from 500ms doubling
// to a 30s cap.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Concurrency:     2,
		PollTimeout:     5 * time.Second,
		RatePerSecond:   20,
		Burst:           10,
		MaxAttempts:     5,
		InitialInterval: 500 * time.Millisecond,
		Multiplier:      2,
		MaxInterval:     30 * time.Second,
		SendTimeout:     10 * time.Second,
	}
}

// Worker consumes a Queue and delivers each job through a Sender.
type Worker struct {
	queue   *Queue
	sender  Sender
	config  WorkerConfig
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics workerMetrics
}

// NewWorker builds a Worker. Zero config fields take their defaults.
func NewWorker(queue *Queue, sender Sender, cfg WorkerConfig, logger *slog.Logger) *Worker {
	def := DefaultWorkerConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = def.PollTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = def.SendTimeout
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	return &Worker{
		queue:   queue,
		sender:  sender,
		config:  cfg,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		logger:  logger,
		metrics: newWorkerMetrics(),
	}
}

// Run consumes until ctx is cancelled. Queue outages are logged and retried.
func (w *Worker) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.config.Concurrency; i++ {
		g.Go(func() error { return w.loop(gctx) })
	}
	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (w *Worker) loop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		job, err := w.queue.Dequeue(ctx, w.config.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, ErrQueueUnavailable) {
				w.logger.Warn("notify: queue unavailable", slog.String("error", err.Error()))
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(w.config.InitialInterval):
				}
				continue
			}
			// Undecodable payloads are dropped; retrying cannot fix them.
			w.logger.Error("notify: dropping undecodable job", slog.String("error", err.Error()))
			continue
		}
		if job == nil {
			continue
		}
		w.Process(ctx, *job)
	}
}

// Process delivers one job with retries. Exhausted or permanently failed
// jobs are dead-lettered; jobs interrupted by ctx are requeued.
func (w *Worker) Process(ctx context.Context, job Job) {
	kind := string(job.Notification.Kind)

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if err := w.limiter.Wait(ctx); err != nil {
			return struct{}{}, err
		}
		job.Attempts++
		sendCtx, cancel := context.WithTimeout(ctx, w.config.SendTimeout)
		defer cancel()
		return struct{}{}, w.sender.Send(sendCtx, job.Notification)
	},
		backoff.WithBackOff(&backoff.ExponentialBackOff{
			InitialInterval:     w.config.InitialInterval,
			RandomizationFactor: backoff.DefaultRandomizationFactor,
			Multiplier:          w.config.Multiplier,
			MaxInterval:         w.config.MaxInterval,
		}),
		backoff.WithMaxTries(uint(w.config.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			w.metrics.retries.Inc()
			w.logger.Warn("notify: send failed, retrying",
				slog.String("job_id", job.ID),
				slog.String("kind", kind),
				slog.Int("attempt", job.Attempts),
				slog.Duration("next", next),
				slog.String("error", err.Error()),
			)
		}),
	)
	if err == nil {
		w.metrics.sent.WithLabelValues(kind).Inc()
		return
	}

	if ctx.Err() != nil {
		if rerr := w.queue.Requeue(context.WithoutCancel(ctx), job); rerr != nil {
			w.logger.Error("notify: requeue failed",
				slog.String("job_id", job.ID),
				slog.String("error", rerr.Error()),
			)
		}
		return
	}

	w.metrics.deadLettered.WithLabelValues(kind).Inc()
	w.logger.Error("notify: delivery failed",
		slog.String("job_id", job.ID),
		slog.String("kind", kind),
		slog.String("account_id", job.Notification.AccountID),
		slog.Int("attempts", job.Attempts),
		slog.String("error", err.Error()),
	)
	if derr := w.queue.DeadLetter(ctx, job, err); derr != nil {
		w.logger.Error("notify: dead-letter failed",
			slog.String("job_id", job.ID),
			slog.String("error", derr.Error()),
		)
	}
}
