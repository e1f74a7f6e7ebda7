package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"mapesa/internal/auth"
	"mapesa/internal/core"
	"mapesa/internal/log"
	"mapesa/internal/middleware/ratelimit"
	"mapesa/internal/middleware/security"
	"mapesa/internal/middleware/trace"
	"mapesa/internal/services"
)

// TagAPI is the tag service surface the handlers call.
type TagAPI interface {
	CreateTags(ctx context.Context, userID int64, tags []core.NewTag) ([]core.InsertedTag, error)
	LinkTag(ctx context.Context, userID int64, link core.NewTransactionTag) ([]core.TransactionTag, error)
	ListUserTags(ctx context.Context, userID int64) ([]core.TagRow, error)
	ListUserTagsGrouped(ctx context.Context, userID int64) ([]core.TagWithTransactions, error)
	GetUserTags(ctx context.Context, userID int64, tagIDs []int64) ([][]core.TagRow, error)
}

// TransactionAPI records and fetches the acting user's transactions.
type TransactionAPI interface {
	Record(ctx context.Context, userID int64, req services.RecordTransaction) (core.Transaction, error)
	Get(ctx context.Context, userID int64, code string) (core.Transaction, error)
}

// Authenticator verifies credentials and registers users.
type Authenticator interface {
	Login(ctx context.Context, creds auth.Credentials) (core.User, error)
	Register(ctx context.Context, creds auth.Credentials, email string) (core.User, error)
}

// ReadinessCheck reports whether the server's dependencies can serve.
type ReadinessCheck func(ctx context.Context) error

type Options struct {
	Tags               TagAPI
	Transactions       TransactionAPI
	Auth               Authenticator
	Ready              ReadinessCheck
	Logger             *log.Logger
	RateLimitPerMinute int
	TrustedProxies     []string
}

type Server struct {
	http.Server
	tags    TagAPI
	txs     TransactionAPI
	auth    Authenticator
	ready   ReadinessCheck
	logger  *log.Logger
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. Shutdown must be called to stop the rate limiter.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	resolver := security.NewIPResolver()
	for _, cidr := range opts.TrustedProxies {
		if err := resolver.AddTrustedProxy(cidr); err != nil {
			logger.WithComponent(log.ComponentSecurity).Warn("Ignoring invalid trusted proxy", "cidr", cidr, log.FieldError, err)
		}
	}

	s := &Server{
		tags:   opts.Tags,
		txs:    opts.Transactions,
		auth:   opts.Auth,
		ready:  opts.Ready,
		logger: logger,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		tracer: trace.NewMiddleware(logger, resolver.ClientIP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /api/tags", s.handleCreateTags)
	mux.HandleFunc("GET /api/tags", s.handleListTags)
	mux.HandleFunc("POST /api/tags/links", s.handleLinkTag)
	mux.HandleFunc("GET /api/tags/lookup", s.handleLookupTags)
	mux.HandleFunc("POST /api/transactions", s.handleRecordTransaction)
	mux.HandleFunc("GET /api/transactions/{code}", s.handleGetTransaction)

	var handler http.Handler = mux
	handler = s.limiter.Middleware(resolver.ClientIP, http.MethodPost)(handler)
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	return s
}

// Shutdown gracefully shuts down the server and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
		s.limiter.Stop()

		m := s.tracer.GetMetrics()
		s.logger.Info("HTTP server stopped",
			log.FieldOperation, log.OpShutdown,
			"total_requests", m.TotalRequests,
			"server_errors", m.ServerErrors,
			"rate_limited", s.limiter.Rejected(),
			"active_clients", s.limiter.ActiveClients())
	})

	return shutdownErr
}

// Metrics returns request counters collected by the tracing middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).Warn("Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

// writeError maps err to a response. Server-side failures are logged and
// answered with the request id so they can be traced.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ErrorFor(err)
	if resp.statusCode >= http.StatusInternalServerError {
		errorType := log.ErrorTypeInternal
		if core.IsPersistence(err) {
			errorType = log.ErrorTypeDatabase
		}
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op,
				log.NewFields().WithErrorType(errorType))

		resp.Body(errorBody{
			Error:     "internal error",
			RequestID: trace.GetRequestID(r.Context()),
		})
	}
	resp.Write(w)
}
