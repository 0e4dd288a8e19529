// Package http exposes the JSON API over net/http.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/advisor"
	"fintrack/internal/analytics"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/auth"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

const maxBodyBytes = 1 << 20

type (
	Authenticator interface {
		auth.Resolver
		Register(ctx context.Context, name, email, password string) (services.Session, error)
		Login(ctx context.Context, email, password string) (services.Session, error)
		Me(ctx context.Context, userID int64) (core.User, error)
	}

	Transactions interface {
		Create(ctx context.Context, ownerID int64, in core.TransactionInput) (core.Transaction, error)
		List(ctx context.Context, ownerID int64, f core.ListFilter) ([]core.Transaction, error)
		Get(ctx context.Context, id, ownerID int64) (core.Transaction, error)
		Update(ctx context.Context, id, ownerID int64, in core.TransactionInput) (core.Transaction, error)
		Delete(ctx context.Context, id, ownerID int64) error
	}

	Reports interface {
		Report(ctx context.Context, ownerID int64) (analytics.Report, error)
		Summary(ctx context.Context, ownerID int64) (core.Summary, error)
		ByCategory(ctx context.Context, ownerID int64) ([]core.CategoryTotal, error)
		Monthly(ctx context.Context, ownerID int64) ([]core.MonthlyTotal, error)
	}

	Advisor interface {
		Insights(ctx context.Context, ownerID int64) ([]string, error)
		Ask(ctx context.Context, ownerID int64, question string) (string, error)
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}
)

var _ Advisor = (*advisor.Gateway)(nil)

// Deps are the application services behind the routes.
type Deps struct {
	Auth         Authenticator
	Transactions Transactions
	Reports      Reports
	Advisor      Advisor
	Store        Pinger
	Logger       *applog.Logger
}

// Options tune the middleware chain.
type Options struct {
	AllowedOrigins []string
	TrustedProxies []string
	// AuthRateLimit is the per-IP budget per minute for register and login.
	AuthRateLimit int
}

type Server struct {
	http.Server
	deps         Deps
	logger       *applog.Logger
	limiter      *ratelimit.Limiter
	tracer       *trace.Middleware
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps, opts Options) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	clientIP := security.NewClientIP()
	for _, cidr := range opts.TrustedProxies {
		if err := clientIP.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring invalid trusted proxy", "cidr", cidr, applog.FieldError, err)
		}
	}

	s := &Server{
		deps:    deps,
		logger:  logger,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.AuthRateLimit}),
		tracer:  trace.NewMiddleware(logger, clientIP.Extract),
	}

	mux := http.NewServeMux()
	limited := s.limiter.Middleware(clientIP.Extract, s.handleRateLimited)
	authed := auth.Middleware(deps.Auth, s.writeError)
	protect := func(h http.HandlerFunc) http.Handler { return authed(h) }

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.Handle("POST /api/auth/register", limited(http.HandlerFunc(s.handleRegister)))
	mux.Handle("POST /api/auth/login", limited(http.HandlerFunc(s.handleLogin)))
	mux.Handle("GET /api/auth/me", protect(s.handleMe))

	for _, base := range []string{"/api/transactions", "/api/transactions/{$}"} {
		mux.Handle("GET "+base, protect(s.handleListTransactions))
		mux.Handle("POST "+base, protect(s.handleCreateTransaction))
	}
	mux.Handle("GET /api/transactions/{id}", protect(s.handleGetTransaction))
	mux.Handle("PUT /api/transactions/{id}", protect(s.handleUpdateTransaction))
	mux.Handle("DELETE /api/transactions/{id}", protect(s.handleDeleteTransaction))

	mux.Handle("GET /api/analytics/summary", protect(s.handleSummary))
	mux.Handle("GET /api/analytics/by-category", protect(s.handleByCategory))
	mux.Handle("GET /api/analytics/monthly", protect(s.handleMonthly))
	mux.Handle("GET /api/analytics/report.pdf", protect(s.handleReportPDF))

	mux.Handle("GET /api/ai/insights", protect(s.handleInsights))
	mux.Handle("POST /api/ai/ask", protect(s.handleAsk))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = mux
	handler = security.CORS(opts.AllowedOrigins)(handler)
	handler = headers.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)

		m := s.tracer.GetMetrics()
		s.logger.Info("HTTP server stopped",
			applog.FieldOperation, applog.OpShutdown,
			"total_requests", m.TotalRequests,
			"server_errors", m.ServerErrors,
			"rate_limited", s.limiter.Rejected())
	})
	return shutdownErr
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "Finance Tracker API is running"})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Store.Ping(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Detail: "Too many requests. Please try again later."})
}
