package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/felipeimp22/persona-finances/internal/auth"
	"github.com/felipeimp22/persona-finances/internal/core"
	"github.com/felipeimp22/persona-finances/internal/services"
)

// fakeExpenseStore is the minimal store needed to exercise the expense
// write path through the full middleware chain.
type fakeExpenseStore struct {
	mu       sync.Mutex
	expenses map[string]core.Expense
}

func newFakeExpenseStore() *fakeExpenseStore {
	return &fakeExpenseStore{expenses: make(map[string]core.Expense)}
}

func (f *fakeExpenseStore) CreateExpense(ctx context.Context, e core.Expense) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expenses[e.ID] = e
	return nil
}

func (f *fakeExpenseStore) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.expenses[id]
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	return e, nil
}

func (f *fakeExpenseStore) ListExpensesBetween(ctx context.Context, from, to time.Time) ([]core.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Expense
	for _, e := range f.expenses {
		if !e.Date.Before(from) && !e.Date.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeExpenseStore) UpdateExpense(ctx context.Context, e core.Expense) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.expenses[e.ID]; !ok {
		return core.ErrNotFound
	}
	f.expenses[e.ID] = e
	return nil
}

func (f *fakeExpenseStore) DeleteExpense(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.expenses[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.expenses, id)
	return nil
}

func newTestServer(t *testing.T) (*Server, *auth.SessionStore) {
	t.Helper()

	authn, err := auth.NewAuthenticator("felipe-pw", "carol-pw")
	if err != nil {
		t.Fatalf("NewAuthenticator() error = %v", err)
	}
	sessions := auth.NewSessionStore(time.Hour)

	clock := services.Clock(func() time.Time {
		return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	})

	svc := Services{
		Expenses: services.NewExpenseService(newFakeExpenseStore(), nil, clock),
	}

	srv := NewServer(":0", svc, authn, sessions, time.Minute, clock)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv, sessions
}

func loginCookie(t *testing.T, sessions *auth.SessionStore, person core.Person) *http.Cookie {
	t.Helper()
	sess, err := sessions.Create(person)
	if err != nil {
		t.Fatalf("Create session: %v", err)
	}
	return &http.Cookie{Name: sessionCookie, Value: sess.Token}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rr.Code)
		}
	}
}

func TestUnauthenticatedRedirect(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
}

func TestUnauthenticatedHTMXGets401(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ui/month-summary", nil)
	req.Header.Set("HX-Request", "true")
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	if redirect := rr.Header().Get("HX-Redirect"); redirect != "/login" {
		t.Errorf("HX-Redirect = %q, want /login", redirect)
	}
}

func TestLoginFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	// Login page renders
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /login status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Sign in") {
		t.Error("login page missing sign-in form")
	}

	// Wrong password is rejected
	rr = httptest.NewRecorder()
	form := url.Values{"person": {"felipe"}, "password": {"wrong"}}
	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d, want 401", rr.Code)
	}

	// Correct credentials set a session cookie and redirect
	rr = httptest.NewRecorder()
	form = url.Values{"person": {"carol"}, "password": {"carol-pw"}}
	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("login status = %d, want 303", rr.Code)
	}

	var found bool
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookie && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Error("expected session cookie after login")
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	srv.Handler.ServeHTTP(rr, req)

	for _, header := range []string{
		"X-Content-Type-Options",
		"X-Frame-Options",
		"Content-Security-Policy",
		"Referrer-Policy",
	} {
		if rr.Header().Get(header) == "" {
			t.Errorf("missing security header %s", header)
		}
	}
}

func TestCreateExpenseThroughStack(t *testing.T) {
	srv, sessions := newTestServer(t)
	cookie := loginCookie(t, sessions, core.PersonFelipe)

	// Wrong method
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/expenses/records", nil)
	req.AddCookie(cookie)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d, want 405", rr.Code)
	}

	// Invalid amount
	rr = httptest.NewRecorder()
	form := url.Values{"description": {"groceries"}, "amount": {"abc"}, "category": {"food"}}
	req = httptest.NewRequest(http.MethodPost, "/expenses/records", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid amount status = %d, want 422", rr.Code)
	}

	// Success carries the refresh triggers
	rr = httptest.NewRecorder()
	form = url.Values{"description": {"groceries"}, "amount": {"42.50"}, "category": {"food"}}
	req = httptest.NewRequest(http.MethodPost, "/expenses/records", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("create status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	trigger := rr.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, "ledger:expenses") {
		t.Errorf("HX-Trigger missing ledger:expenses: %s", trigger)
	}
	if !strings.Contains(trigger, "summary:refresh") {
		t.Errorf("HX-Trigger missing summary:refresh: %s", trigger)
	}
	if !strings.Contains(trigger, "show-notification") {
		t.Errorf("HX-Trigger missing notification: %s", trigger)
	}
}

func TestRateLimiterBlocksAfterBudget(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	var metrics securityMetrics
	for i := 0; i < requestsPerMinute; i++ {
		if !rl.allow("10.0.0.1", &metrics) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.allow("10.0.0.1", &metrics) {
		t.Error("request over budget should be blocked")
	}
	// A different client is unaffected
	if !rl.allow("10.0.0.2", &metrics) {
		t.Error("other client should be allowed")
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"direct", "203.0.113.9:1234", "", "203.0.113.9"},
		{"trusted proxy honors xff", "127.0.0.1:1234", "198.51.100.7", "198.51.100.7"},
		{"untrusted proxy ignores xff", "203.0.113.9:1234", "198.51.100.7", "203.0.113.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := extractClientIP(req); got != tt.want {
				t.Errorf("extractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
