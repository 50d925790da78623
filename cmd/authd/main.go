// Command authd serves the authgate engine over HTTP and runs the
// notification worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/authgate/authgate"
	"github.com/authgate/authgate/fraud"
	"github.com/authgate/authgate/httpapi"
	"github.com/authgate/authgate/identity/google"
	"github.com/authgate/authgate/internal/config"
	"github.com/authgate/authgate/internal/logger"
	promexport "github.com/authgate/authgate/metrics/export/prometheus"
	"github.com/authgate/authgate/notify"
	"github.com/authgate/authgate/store/memory"
	"github.com/authgate/authgate/store/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("authd exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.SetupDefault(os.Stdout, logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	repo, closeRepo, err := openRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	queue := notify.NewQueue(rdb, notify.QueueConfig{})
	senders, err := buildSenders(cfg, log)
	if err != nil {
		return err
	}
	worker := notify.NewWorker(queue, senders, notify.WorkerConfig{
		Concurrency:   cfg.NotifyWorkers,
		RatePerSecond: cfg.NotifyRatePerSecond,
		Burst:         cfg.NotifyWorkers,
		MaxAttempts:   cfg.NotifyMaxAttempts,
	}, log)

	fraudProcessor := fraud.NewProcessor(rdb, fraud.Config{
		BruteForceThreshold: cfg.FraudBruteForceThreshold,
	}, fraud.Hooks{}, log)

	builder := authgate.New().
		WithConfig(cfg.EngineConfig()).
		WithRedis(rdb).
		WithCredentialRepository(repo).
		WithNotifier(queue).
		WithEventSink(fraudProcessor).
		WithLogger(log)
	if cfg.GoogleClientID != "" {
		verifier, err := google.NewVerifier(ctx, cfg.GoogleClientID)
		if err != nil {
			return err
		}
		builder = builder.WithIdentityVerifier(verifier)
	}
	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		promexport.NewExporter(engine),
		fraudProcessor,
		worker,
	)

	api := httpapi.New(engine, rdb, httpapi.Config{
		Limits:     httpapi.DefaultLimits(),
		TrustProxy: cfg.TrustProxy,
		Metrics:    promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Health:     func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		Logger:     log,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openRepository(ctx context.Context, cfg *config.Config, log *slog.Logger) (authgate.CredentialRepository, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, accounts are kept in memory")
		return memory.New(), func() {}, nil
	}

	if cfg.DatabaseMigrate {
		if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
			return nil, nil, err
		}
	}
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	return postgres.New(db), func() { _ = db.Close() }, nil
}

func buildSenders(cfg *config.Config, log *slog.Logger) (*notify.Router, error) {
	fallback := notify.LogSender{Logger: log}
	router := notify.NewRouter().
		Handle(authgate.NotifyWelcomeEmail, fallback).
		Handle(authgate.NotifyResetPassword, fallback).
		Handle(authgate.NotifySendOTP, fallback)

	if cfg.SMTPAddr != "" {
		mailer, err := notify.NewSMTPMailer(notify.SMTPConfig{
			Addr:     cfg.SMTPAddr,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			ResetURL: cfg.ResetURL,
		})
		if err != nil {
			return nil, err
		}
		router.Handle(authgate.NotifyWelcomeEmail, mailer).Handle(authgate.NotifyResetPassword, mailer)
	}

	if cfg.SMSEndpoint != "" {
		sms, err := notify.NewSMSClient(notify.SMSConfig{
			Endpoint: cfg.SMSEndpoint,
			APIKey:   cfg.SMSAPIKey,
			Sender:   cfg.SMSSender,
		}, nil)
		if err != nil {
			return nil, err
		}
		router.Handle(authgate.NotifySendOTP, sms)
	}

	return router, nil
}
