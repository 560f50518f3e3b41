package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"finledger/internal/log"
	"finledger/internal/middleware/ratelimit"
	"finledger/internal/middleware/security"
	"finledger/internal/middleware/trace"
	"finledger/internal/services"
)

// Options configures a Server. Zero values are replaced with defaults.
type Options struct {
	Logger         *log.Logger
	RateLimit      ratelimit.Config
	TrustedProxies []string
	// Ready reports whether the backing store can serve requests.
	Ready func(ctx context.Context) error
	// Now is the clock used for default overview months.
	Now func() time.Time
}

type Server struct {
	http.Server
	ledger *services.Ledger
	logger *log.Logger
	ready  func(ctx context.Context) error
	now    func() time.Time

	clientIP    *security.ClientIPResolver
	tracer      *trace.Middleware
	rateLimiter *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledger *services.Ledger, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Ready == nil {
		opts.Ready = func(context.Context) error { return nil }
	}

	s := &Server{
		ledger:      ledger,
		logger:      opts.Logger.WithComponent(log.ComponentHTTP),
		ready:       opts.Ready,
		now:         opts.Now,
		clientIP:    security.NewClientIPResolver(),
		rateLimiter: ratelimit.NewLimiter(opts.RateLimit),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.clientIP.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring invalid trusted proxy", "cidr", cidr, log.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(opts.Logger, s.clientIP.ClientIP)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) routes() http.Handler {
	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundResponse("no route for " + r.URL.Path).Write(w)
	})
	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, log.ErrorTypeValidation, "method not allowed").Write(w)
	})

	r := mux.NewRouter()
	r.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = methodNotAllowed

	r.Use(
		s.tracer.Middleware,
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		s.rateLimiter.Middleware(s.clientIP.ClientIP, ratelimit.ReadOnly, func(w http.ResponseWriter, r *http.Request) {
			ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, please try again later").Write(w)
		}),
	)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet, http.MethodHead)

	// Subrouters do not inherit the root's fallback handlers.
	api := r.PathPrefix("/api").Subrouter()
	api.NotFoundHandler = notFound
	api.MethodNotAllowedHandler = methodNotAllowed

	api.HandleFunc("/accounts", s.wrap(s.handleListAccounts)).Methods(http.MethodGet)
	api.HandleFunc("/accounts", s.wrap(s.handleCreateAccount)).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{id}", s.wrap(s.handleGetAccount)).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{id}", s.wrap(s.handleUpdateAccount)).Methods(http.MethodPatch)
	api.HandleFunc("/accounts/{id}", s.wrap(s.handleDeleteAccount)).Methods(http.MethodDelete)
	api.HandleFunc("/accounts/{id}/recompute", s.wrap(s.handleRecomputeAccount)).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{id}/headroom", s.wrap(s.handleAccountHeadroom)).Methods(http.MethodGet)

	api.HandleFunc("/categories", s.wrap(s.handleListCategories)).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.wrap(s.handleCreateCategory)).Methods(http.MethodPost)
	api.HandleFunc("/categories/{id}", s.wrap(s.handleGetCategory)).Methods(http.MethodGet)
	api.HandleFunc("/categories/{id}", s.wrap(s.handleUpdateCategory)).Methods(http.MethodPatch)
	api.HandleFunc("/categories/{id}", s.wrap(s.handleDeleteCategory)).Methods(http.MethodDelete)

	api.HandleFunc("/transactions", s.wrap(s.handleListTransactions)).Methods(http.MethodGet)
	api.HandleFunc("/transactions", s.wrap(s.handleCreateTransaction)).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id}", s.wrap(s.handleGetTransaction)).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id}", s.wrap(s.handleUpdateTransaction)).Methods(http.MethodPatch)
	api.HandleFunc("/transactions/{id}", s.wrap(s.handleDeleteTransaction)).Methods(http.MethodDelete)

	api.HandleFunc("/holdings", s.wrap(s.handleListHoldings)).Methods(http.MethodGet)
	api.HandleFunc("/holdings", s.wrap(s.handleCreateHolding)).Methods(http.MethodPost)
	api.HandleFunc("/holdings/{id}", s.wrap(s.handleGetHolding)).Methods(http.MethodGet)
	api.HandleFunc("/holdings/{id}", s.wrap(s.handleUpdateHolding)).Methods(http.MethodPatch)
	api.HandleFunc("/holdings/{id}", s.wrap(s.handleDeleteHolding)).Methods(http.MethodDelete)
	api.HandleFunc("/holdings/{id}/price", s.wrap(s.handleUpdateHoldingPrice)).Methods(http.MethodPut)

	api.HandleFunc("/goals", s.wrap(s.handleListGoals)).Methods(http.MethodGet)
	api.HandleFunc("/goals", s.wrap(s.handleCreateGoal)).Methods(http.MethodPost)
	api.HandleFunc("/goals/{id}", s.wrap(s.handleGetGoal)).Methods(http.MethodGet)
	api.HandleFunc("/goals/{id}", s.wrap(s.handleUpdateGoal)).Methods(http.MethodPatch)
	api.HandleFunc("/goals/{id}", s.wrap(s.handleDeleteGoal)).Methods(http.MethodDelete)
	api.HandleFunc("/goals/{id}/current-amount", s.wrap(s.handleGoalCurrentAmount)).Methods(http.MethodGet)
	api.HandleFunc("/goals/{id}/progress", s.wrap(s.handleGoalProgress)).Methods(http.MethodGet)
	api.HandleFunc("/goals/{id}/allocations", s.wrap(s.handleGoalAllocations)).Methods(http.MethodGet)

	api.HandleFunc("/goal-allocations", s.wrap(s.handleListAllocations)).Methods(http.MethodGet)
	api.HandleFunc("/goal-allocations", s.wrap(s.handleCreateAllocation)).Methods(http.MethodPost)
	api.HandleFunc("/goal-allocations/{id}", s.wrap(s.handleGetAllocation)).Methods(http.MethodGet)
	api.HandleFunc("/goal-allocations/{id}", s.wrap(s.handleUpdateAllocation)).Methods(http.MethodPatch)
	api.HandleFunc("/goal-allocations/{id}", s.wrap(s.handleDeleteAllocation)).Methods(http.MethodDelete)

	api.HandleFunc("/budgets", s.wrap(s.handleListBudgets)).Methods(http.MethodGet)
	api.HandleFunc("/budgets", s.wrap(s.handleCreateBudget)).Methods(http.MethodPost)
	api.HandleFunc("/budgets/{id}", s.wrap(s.handleGetBudget)).Methods(http.MethodGet)
	api.HandleFunc("/budgets/{id}", s.wrap(s.handleUpdateBudget)).Methods(http.MethodPatch)
	api.HandleFunc("/budgets/{id}", s.wrap(s.handleDeleteBudget)).Methods(http.MethodDelete)
	api.HandleFunc("/budgets/{id}/spending", s.wrap(s.handleBudgetSpending)).Methods(http.MethodGet)
	api.HandleFunc("/budgets/{id}/status", s.wrap(s.handleBudgetStatus)).Methods(http.MethodGet)

	api.HandleFunc("/overview", s.wrap(s.handleOverview)).Methods(http.MethodGet)

	return r
}

// apiHandler writes its own success response and returns any failure for wrap to map.
type apiHandler func(w http.ResponseWriter, r *http.Request) error

// wrap maps a handler error onto the error taxonomy response. Server-side
// failures are logged with their cause; the client sees a generic message.
func (s *Server) wrap(h apiHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}
		resp := FromError(err)
		logger := log.FromContext(r.Context())
		if resp.statusCode >= http.StatusInternalServerError {
			log.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, log.ComponentHTTP, r.Method+" "+r.URL.Path,
				log.NewFields().WithErrorType(errorType(err)))
		} else {
			logger.DebugContext(r.Context(), "Request rejected",
				log.FieldError, err,
				log.FieldErrorType, errorType(err),
				log.FieldStatusCode, resp.statusCode)
		}
		resp.Write(w)
	}
}

// Shutdown stops the rate limiter cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// ListenAndServe runs the server until Shutdown. A clean shutdown returns nil.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening", "addr", s.Addr)
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

// handleReady checks the store and reports middleware counters.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := map[string]any{
		"trace":     s.tracer.GetMetrics(),
		"rateLimit": s.rateLimiter.GetMetrics(),
	}
	if err := s.ready(ctx); err != nil {
		log.FromContext(r.Context()).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		body["status"] = "unavailable"
		NewJSONResponse().Status(http.StatusServiceUnavailable).Body(body).Write(w)
		return
	}
	body["status"] = "ready"
	NewJSONResponse().Body(body).Write(w)
}
