// Package http serves the JSON API: the daily budget overview, the income
// and savings settings, the expense lists, and the transaction ledger.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"spendable/internal/budget"
	"spendable/internal/cache"
	applog "spendable/internal/log"
	"spendable/internal/services"
)

type Server struct {
	http.Server
	service     *services.BudgetService
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	logger      *applog.StructuredLogger

	// Overview responses are cached per date; any write invalidates.
	overviewCache *cache.LRUCache[budget.Overview]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. cacheTTL bounds how stale a cached overview may be; 0
// effectively disables the cache.
func NewServer(addr string, service *services.BudgetService, cacheTTL time.Duration) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		service:     service,
		rateLimiter: newRateLimiter(),
		metrics:     &securityMetrics{},
		logger: applog.NewStructuredLogger(applog.New(applog.Config{
			Level:     slog.LevelInfo,
			Component: applog.ComponentHTTP,
		})),
		overviewCache: cache.NewLRUCache[budget.Overview](32, cacheTTL),
		cacheManager:  cache.NewManager(),
	}

	s.cacheManager.Register(s.overviewCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/budget/today", s.withMiddleware(s.handleBudgetToday))

	mux.HandleFunc("GET /api/settings/income", s.withMiddleware(s.handleGetIncomeSettings))
	mux.HandleFunc("PUT /api/settings/income", s.withMiddleware(s.handleSaveIncomeSettings))
	mux.HandleFunc("GET /api/settings/savings", s.withMiddleware(s.handleGetSavingsPolicy))
	mux.HandleFunc("PUT /api/settings/savings", s.withMiddleware(s.handleSaveSavingsPolicy))

	mux.HandleFunc("GET /api/fixed-expenses", s.withMiddleware(s.handleListFixedExpenses))
	mux.HandleFunc("POST /api/fixed-expenses", s.withMiddleware(s.handleCreateFixedExpense))
	mux.HandleFunc("DELETE /api/fixed-expenses/{id}", s.withMiddleware(s.handleDeleteFixedExpense))

	mux.HandleFunc("GET /api/future-expenses", s.withMiddleware(s.handleListFutureExpenses))
	mux.HandleFunc("POST /api/future-expenses", s.withMiddleware(s.handleCreateFutureExpense))
	mux.HandleFunc("DELETE /api/future-expenses/{id}", s.withMiddleware(s.handleDeleteFutureExpense))

	mux.HandleFunc("GET /api/transactions", s.withMiddleware(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.withMiddleware(s.handleRecordTransaction))

	return s
}

// withMiddleware adds security headers, rate limiting, and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		s.logger.LogHTTPStart(ctx, r, clientIP)

		// Mutating requests are rate limited per client IP.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP, s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// invalidateOverview drops every cached overview. Cheap at this cache size,
// and any settings or ledger write can shift the figures for any date.
func (s *Server) invalidateOverview() {
	s.overviewCache.Clear()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
