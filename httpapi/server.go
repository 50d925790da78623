package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/authgate/authgate"
	"github.com/authgate/authgate/internal/rate"
	"github.com/authgate/authgate/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

// Engine is the authgate.Engine surface the API serves.
type Engine interface {
	middleware.AccessValidator

	RegisterWithEmail(ctx context.Context, email, password string) (*authgate.TokenPair, error)
	LoginWithEmail(ctx context.Context, email, password string) (*authgate.LoginResult, error)
	CompleteMFALogin(ctx context.Context, mfaToken, code string) (*authgate.TokenPair, error)
	LoginWithGoogle(ctx context.Context, idToken string) (*authgate.TokenPair, error)
	RequestPhoneOTP(ctx context.Context, phone string) error
	VerifyPhoneOTP(ctx context.Context, phone, code string) (*authgate.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*authgate.TokenPair, error)
	Logout(ctx context.Context, accountID, refreshToken string) error
	LogoutAll(ctx context.Context, accountID string) error
	SetupTOTP(ctx context.Context, accountID string) (*authgate.TOTPSetup, error)
	VerifyAndEnableTOTP(ctx context.Context, accountID, code string) error
	DisableTOTP(ctx context.Context, accountID, code string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

var _ Engine = (*authgate.Engine)(nil)

// Config configures the API server.
type Config struct {
	Limits Limits
	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxy bool
	// Metrics, when set, is mounted at GET /metrics.
	Metrics http.Handler
	// Health reports readiness for GET /healthz. Nil always reports ok.
	Health func(ctx context.Context) error
	Logger *slog.Logger
}

// Server holds the handlers' dependencies.
type Server struct {
	engine  Engine
	limiter *rate.Limiter
	config  Config
	logger  *slog.Logger
}

// New builds the API. redisClient backs the per-IP limits.
func New(engine Engine, redisClient redis.UniversalClient, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:  engine,
		limiter: rate.New(redisClient),
		config:  cfg,
		logger:  logger,
	}
}

// Handler returns the routed http.Handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if s.config.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer)
	r.Use(middleware.ClientMeta)

	r.Get("/healthz", s.handleHealth)
	if s.config.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.config.Metrics)
	}

	l := s.config.Limits
	r.Route("/auth", func(r chi.Router) {
		r.With(s.limit("register", l.Register)).Post("/register/email", s.handleRegister)

		r.With(s.limit("login", l.Login)).Post("/login/email", s.handleLogin)
		r.With(s.limit("login_mfa", l.LoginMFA)).Post("/login/mfa", s.handleLoginMFA)
		r.With(s.limit("login_google", l.LoginGoogle)).Post("/login/google", s.handleGoogle)
		r.With(s.limit("phone_request", l.PhoneRequest)).Post("/login/phone/request", s.handlePhoneRequest)
		r.With(s.limit("phone_verify", l.PhoneVerify)).Post("/login/phone/verify", s.handlePhoneVerify)

		r.With(s.limit("refresh", l.Refresh)).Post("/token/refresh", s.handleRefresh)

		r.With(s.limit("forgot_password", l.ForgotPassword)).Post("/password/forgot", s.handleForgotPassword)
		r.Post("/password/reset", s.handleResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Guard(s.engine))

			r.Post("/logout", s.handleLogout)
			r.Post("/logout/all", s.handleLogoutAll)
			r.Post("/mfa/setup", s.handleMFASetup)
			r.Post("/mfa/verify", s.handleMFAVerify)
			r.Post("/mfa/disable", s.handleMFADisable)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.config.Health != nil {
		if err := s.config.Health(r.Context()); err != nil {
			s.logger.Warn("health check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "unavailable"})
			return
		}
	}
	writeOK(w)
}
