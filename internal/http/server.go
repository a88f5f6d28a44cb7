package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/felipeimp22/persona-finances/internal/auth"
	"github.com/felipeimp22/persona-finances/internal/cache"
	"github.com/felipeimp22/persona-finances/internal/core"
	"github.com/felipeimp22/persona-finances/internal/services"
	appweb "github.com/felipeimp22/persona-finances/web"
)

const sessionCookie = "pf_session"

// Services bundles the application services the HTTP layer exposes.
type Services struct {
	Tracker   *services.MonthTracker
	Bills     *services.BillService
	Payments  *services.PaymentReconciler
	Summaries *services.MonthSummarizer
	Income    *services.IncomeService
	Expenses  *services.ExpenseService
}

type Server struct {
	http.Server
	templates *template.Template
	svc       Services

	authn    *auth.Authenticator
	sessions *auth.SessionStore

	rateLimiter *rateLimiter
	metrics     securityMetrics
	clock       services.Clock

	// Month views are expensive to assemble (several queries each), so
	// they are cached per month and invalidated on every write.
	summaryCache   *cache.LRUCache[core.MonthSummary]
	financialCache *cache.LRUCache[core.FinancialSummary]
	cacheManager   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(
	addr string,
	svc Services,
	authn *auth.Authenticator,
	sessions *auth.SessionStore,
	cacheTTL time.Duration,
	clock services.Clock,
) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		svc:            svc,
		authn:          authn,
		sessions:       sessions,
		rateLimiter:    newRateLimiter(),
		clock:          clock,
		summaryCache:   cache.NewLRUCache[core.MonthSummary](100, cacheTTL),
		financialCache: cache.NewLRUCache[core.FinancialSummary](100, cacheTTL),
		cacheManager:   cache.NewManager(),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.financialCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/login", s.withSecurityHeaders(s.handleLogin))
	mux.HandleFunc("/logout", s.withSecurityHeaders(s.requireSession(s.handleLogout)))

	// Pages
	mux.HandleFunc("/", s.withSecurityHeaders(s.requireSession(s.handleDashboard)))
	mux.HandleFunc("/bills", s.withSecurityHeaders(s.requireSession(s.handleBillsPage)))
	mux.HandleFunc("/income", s.withSecurityHeaders(s.requireSession(s.handleIncomePage)))
	mux.HandleFunc("/expenses", s.withSecurityHeaders(s.requireSession(s.handleExpensesPage)))
	mux.HandleFunc("/calendar", s.withSecurityHeaders(s.requireSession(s.handleCalendarPage)))

	// UI partials
	mux.HandleFunc("/ui/month-summary", s.withSecurityHeaders(s.requireSession(s.handleMonthSummary)))
	mux.HandleFunc("/ui/financial-summary", s.withSecurityHeaders(s.requireSession(s.handleFinancialSummary)))
	mux.HandleFunc("/ui/instances", s.withSecurityHeaders(s.requireSession(s.handleInstanceList)))

	// Bill instances
	mux.HandleFunc("/instances/paid", s.withSecurityHeaders(s.requireSession(s.handleMarkInstancePaid)))
	mux.HandleFunc("/instances/delete", s.withSecurityHeaders(s.requireSession(s.handleDeleteInstance)))

	// Fixed bill templates
	mux.HandleFunc("/bills/fixed", s.withSecurityHeaders(s.requireSession(s.handleCreateFixedBill)))
	mux.HandleFunc("/bills/fixed/toggle", s.withSecurityHeaders(s.requireSession(s.handleToggleFixedBill)))
	mux.HandleFunc("/bills/fixed/delete", s.withSecurityHeaders(s.requireSession(s.handleDeleteFixedBill)))

	// One-time bills and their payments
	mux.HandleFunc("/bills/onetime", s.withSecurityHeaders(s.requireSession(s.handleCreateOneTimeBill)))
	mux.HandleFunc("/bills/onetime/delete", s.withSecurityHeaders(s.requireSession(s.handleDeleteOneTimeBill)))
	mux.HandleFunc("/payments", s.withSecurityHeaders(s.requireSession(s.handleAddPayment)))
	mux.HandleFunc("/payments/delete", s.withSecurityHeaders(s.requireSession(s.handleDeletePayment)))

	// Income and expenses
	mux.HandleFunc("/income/records", s.withSecurityHeaders(s.requireSession(s.handleCreateIncome)))
	mux.HandleFunc("/income/records/delete", s.withSecurityHeaders(s.requireSession(s.handleDeleteIncome)))
	mux.HandleFunc("/expenses/records", s.withSecurityHeaders(s.requireSession(s.handleCreateExpense)))
	mux.HandleFunc("/expenses/records/delete", s.withSecurityHeaders(s.requireSession(s.handleDeleteExpense)))

	return s
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

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	personKey    contextKey = "person"
)

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		if detectSuspiciousRequest(r, &s.metrics) {
			slog.WarnContext(ctx, "Suspicious request detected",
				"request_id", requestID, "client_ip", clientIP, "url", r.URL.Path)
		}

		// Rate limit mutating requests only; page loads stay cheap.
		if (r.Method == http.MethodPost || r.Method == http.MethodDelete) && !s.rateLimiter.allow(clientIP, &s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

// requireSession resolves the login cookie and injects the person into the
// request context. Browsers get redirected to the login page; HTMX
// requests get a 401 with an HX-Redirect header so the page navigates.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil {
			s.rejectUnauthenticated(w, r)
			return
		}

		sess, ok := s.sessions.Lookup(cookie.Value)
		if !ok {
			s.rejectUnauthenticated(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), personKey, sess.Person)
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) rejectUnauthenticated(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// sessionPerson returns the logged-in person stored by requireSession.
func sessionPerson(r *http.Request) core.Person {
	if p, ok := r.Context().Value(personKey).(core.Person); ok {
		return p
	}
	return ""
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) cacheKey(month core.MonthKey) string {
	return month.String()
}

// invalidateMonth drops the cached views of one month.
func (s *Server) invalidateMonth(month core.MonthKey) {
	key := s.cacheKey(month)
	s.summaryCache.Delete(key)
	s.financialCache.Delete(key)
}

// InvalidateAll drops every cached month view. The AMQP consumer calls
// this when another process reports a ledger change.
func (s *Server) InvalidateAll() {
	s.summaryCache.Clear()
	s.financialCache.Clear()
}

func (s *Server) getMonthSummary(ctx context.Context, month core.MonthKey) (core.MonthSummary, error) {
	key := s.cacheKey(month)

	if data, found := s.summaryCache.Get(key); found {
		slog.DebugContext(ctx, "Month summary cache hit", "month", key)
		return data, nil
	}

	// Add a small timeout to avoid hanging partials
	cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()
	data, err := s.svc.Summaries.SummarizeMonth(cctx, month)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("summarize month %s: %w", key, err)
	}

	s.summaryCache.Set(key, data)
	slog.DebugContext(ctx, "Month summary cached", "month", key, "count", data.CurrentMonthCount)
	return data, nil
}

func (s *Server) getFinancialSummary(ctx context.Context, month core.MonthKey) (core.FinancialSummary, error) {
	key := s.cacheKey(month)

	if data, found := s.financialCache.Get(key); found {
		slog.DebugContext(ctx, "Financial summary cache hit", "month", key)
		return data, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()
	data, err := s.svc.Summaries.SummarizeFinancials(cctx, month)
	if err != nil {
		return core.FinancialSummary{}, fmt.Errorf("summarize financials %s: %w", key, err)
	}

	s.financialCache.Set(key, data)
	slog.DebugContext(ctx, "Financial summary cached", "month", key, "warnings", len(data.Warnings))
	return data, nil
}

// monthRefresh bundles the trigger pair every write response carries.
func monthRefresh(b *HTMXResponseBuilder, scope string, month core.MonthKey) *HTMXResponseBuilder {
	return b.
		TriggerLedgerChanged(scope, month.Year(), int(month.Month())).
		TriggerSummaryRefresh(month.Year(), int(month.Month()))
}

// renderTemplate executes a template, logging and degrading on failure.
func (s *Server) renderTemplate(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
