package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// DefaultMaxUploadBytes bounds CSV, receipt and backup uploads.
const DefaultMaxUploadBytes int64 = 5 << 20

// maxFormBytes bounds plain JSON and form bodies.
const maxFormBytes int64 = 64 << 10

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsSource exposes cache counters on the metrics endpoint.
type StatsSource interface {
	Stats() cache.Stats
	Size() int
}

// Dependencies are the collaborators of the API. Finance and Profiles are
// required; everything else is optional.
type Dependencies struct {
	Finance  *services.FinanceService
	Profiles *services.ProfileService
	Scanner  *services.ReceiptScanner
	Auth     *auth.Provider
	Limiter  *ratelimit.Limiter
	Detector *security.Detector
	Trace    *trace.Middleware
	Store    Pinger
	Caches   map[string]StatsSource
	Logger   *log.Logger

	MaxUploadBytes int64
}

// Server wraps http.Server with the finance API routes.
type Server struct {
	http.Server

	finance  *services.FinanceService
	profiles *services.ProfileService
	scanner  *services.ReceiptScanner
	auth     *auth.Provider
	limiter  *ratelimit.Limiter
	detector *security.Detector
	trace    *trace.Middleware
	store    Pinger
	caches   map[string]StatsSource
	logger   *log.Logger

	maxUpload    int64
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}
	s := &Server{
		finance:   deps.Finance,
		profiles:  deps.Profiles,
		scanner:   deps.Scanner,
		auth:      deps.Auth,
		limiter:   deps.Limiter,
		detector:  deps.Detector,
		trace:     deps.Trace,
		store:     deps.Store,
		caches:    deps.Caches,
		logger:    logger.WithComponent(log.ComponentHTTP),
		maxUpload: deps.MaxUploadBytes,
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUploadBytes
	}
	if s.detector == nil {
		s.detector = security.NewDetector(logger)
	}
	if s.trace == nil {
		s.trace = trace.NewMiddleware()
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /auth/login", s.handleLogin)
	mux.HandleFunc("GET /auth/callback", s.handleCallback)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("GET /auth/me", s.handleMe)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/metrics", s.handleMetrics)

	api.HandleFunc("GET /api/profiles", s.handleListProfiles)
	api.HandleFunc("POST /api/profiles", s.handleCreateProfile)
	api.HandleFunc("DELETE /api/profiles/{profile}", s.withProfile(s.handleDeleteProfile))
	api.HandleFunc("PUT /api/profiles/{profile}/select", s.withProfile(s.handleSelectProfile))

	api.HandleFunc("GET /api/profiles/{profile}/snapshot", s.withProfile(s.handleSnapshot))
	api.HandleFunc("GET /api/profiles/{profile}/dashboard", s.withProfile(s.handleDashboard))
	api.HandleFunc("GET /api/profiles/{profile}/budget-summary", s.withProfile(s.handleBudgetSummary))
	api.HandleFunc("PUT /api/profiles/{profile}/month", s.withProfile(s.handleSetMonth))
	api.HandleFunc("PUT /api/profiles/{profile}/limits", s.withProfile(s.handleSetLimits))

	api.HandleFunc("POST /api/profiles/{profile}/categories", s.withProfile(s.handleAddCategory))
	api.HandleFunc("DELETE /api/profiles/{profile}/categories/{name}", s.withProfile(s.handleRemoveCategory))
	api.HandleFunc("POST /api/profiles/{profile}/members", s.withProfile(s.handleAddMember))
	api.HandleFunc("DELETE /api/profiles/{profile}/members/{name}", s.withProfile(s.handleRemoveMember))

	api.HandleFunc("POST /api/profiles/{profile}/incomes", s.withProfile(s.handleAddIncome))
	api.HandleFunc("PUT /api/profiles/{profile}/incomes/{id}", s.withProfile(s.handleUpdateIncome))
	api.HandleFunc("DELETE /api/profiles/{profile}/incomes/{id}", s.withProfile(s.handleRemoveIncome))
	api.HandleFunc("POST /api/profiles/{profile}/expenses", s.withProfile(s.handleAddExpense))
	api.HandleFunc("PUT /api/profiles/{profile}/expenses/{id}", s.withProfile(s.handleUpdateExpense))
	api.HandleFunc("DELETE /api/profiles/{profile}/expenses/{id}", s.withProfile(s.handleRemoveExpense))
	api.HandleFunc("POST /api/profiles/{profile}/budgets", s.withProfile(s.handleAddBudget))
	api.HandleFunc("PUT /api/profiles/{profile}/budgets/{id}", s.withProfile(s.handleUpdateBudget))
	api.HandleFunc("DELETE /api/profiles/{profile}/budgets/{id}", s.withProfile(s.handleRemoveBudget))

	api.HandleFunc("POST /api/profiles/{profile}/import/csv", s.withProfile(s.handleImportCSV))
	api.HandleFunc("POST /api/profiles/{profile}/receipts/scan", s.withProfile(s.handleScanReceipt))
	api.HandleFunc("GET /api/profiles/{profile}/backup", s.withProfile(s.handleExport))
	api.HandleFunc("POST /api/profiles/{profile}/backup", s.withProfile(s.handleRestore))
	api.HandleFunc("POST /api/profiles/{profile}/reset", s.withProfile(s.handleReset))

	mux.Handle("/api/", s.auth.Middleware(api))

	// Outermost first.
	chain := []func(http.Handler) http.Handler{
		log.Middleware(s.logger),
		s.trace.Middleware,
		log.AccessLog(s.detector.ExtractClientIP),
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		s.detector.Middleware,
	}
	if s.limiter != nil {
		chain = append(chain, s.limiter.Middleware(s.detector.ExtractClientIP, writeRateLimited, s.logger))
	}

	var h http.Handler = mux
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}

// Shutdown gracefully shuts down the HTTP server. It is safe to call more
// than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.InfoContext(ctx, "Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func writeRateLimited(w http.ResponseWriter, _ *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type metricsResponse struct {
	Requests  trace.Metrics             `json:"requests"`
	RateLimit *ratelimit.Metrics        `json:"rateLimit,omitempty"`
	Security  security.DetectionMetrics `json:"security"`
	Caches    map[string]cacheMetrics   `json:"caches,omitempty"`
}

type cacheMetrics struct {
	cache.Stats
	Size int `json:"size"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	resp := metricsResponse{
		Requests: s.trace.GetMetrics(),
		Security: s.detector.GetMetrics(),
	}
	if s.limiter != nil {
		m := s.limiter.GetMetrics()
		resp.RateLimit = &m
	}
	if len(s.caches) > 0 {
		resp.Caches = make(map[string]cacheMetrics, len(s.caches))
		for name, c := range s.caches {
			resp.Caches[name] = cacheMetrics{Stats: c.Stats(), Size: c.Size()}
		}
	}
	NewJSONResponse().Data(resp).Write(w)
}
