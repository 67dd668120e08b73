package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"agencyerp/internal/domain/auth"
)

func rateLimitedOK(limit int, window time.Duration) http.Handler {
	return RateLimit(limit, window)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func asUser(r *http.Request, tenantID, userID string) *http.Request {
	ctx := context.WithValue(r.Context(), ctxKeyUser, auth.UserContext{
		TenantID: tenantID,
		UserID:   userID,
	})
	return r.WithContext(ctx)
}

func TestRateLimitRemainingCountsDown(t *testing.T) {
	handler := rateLimitedOK(3, time.Minute)

	for want := 2; want >= 0; want-- {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/crm/leads", nil)
		req.RemoteAddr = "203.0.113.40:7001"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("request within limit got %d", rec.Code)
		}
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != strconv.Itoa(want) {
			t.Fatalf("X-RateLimit-Remaining = %q, want %d", got, want)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/crm/leads", nil)
	req.RemoteAddr = "203.0.113.40:7001"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("request over limit got %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("X-RateLimit-Remaining after exhaustion = %q, want 0", got)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("throttled response missing Retry-After")
	}
}

func TestRateLimitBucketsAreIsolatedPerUser(t *testing.T) {
	handler := rateLimitedOK(1, time.Minute)

	exhaust := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil), "tenant-a", "user-1")
	exhaust.RemoteAddr = "198.51.100.50:4000"
	handler.ServeHTTP(httptest.NewRecorder(), exhaust)

	blocked := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil), "tenant-a", "user-1")
	blocked.RemoteAddr = "198.51.100.50:4000"
	blockedRec := httptest.NewRecorder()
	handler.ServeHTTP(blockedRec, blocked)
	if blockedRec.Code != http.StatusTooManyRequests {
		t.Fatalf("repeat request from same user got %d, want 429", blockedRec.Code)
	}

	// A different user behind the same IP keeps a fresh budget.
	other := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil), "tenant-a", "user-2")
	other.RemoteAddr = "198.51.100.50:4000"
	otherRec := httptest.NewRecorder()
	handler.ServeHTTP(otherRec, other)
	if otherRec.Code != http.StatusNoContent {
		t.Fatalf("request from second user got %d, want 204", otherRec.Code)
	}

	// Same user ID under another tenant is a separate actor too.
	otherTenant := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil), "tenant-b", "user-1")
	otherTenant.RemoteAddr = "198.51.100.50:4000"
	tenantRec := httptest.NewRecorder()
	handler.ServeHTTP(tenantRec, otherTenant)
	if tenantRec.Code != http.StatusNoContent {
		t.Fatalf("request from same user in another tenant got %d, want 204", tenantRec.Code)
	}
}

func TestRateLimitAnonymousKeyedByClientIP(t *testing.T) {
	handler := rateLimitedOK(1, time.Minute)

	first := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	first.RemoteAddr = "192.0.2.61:1000"
	handler.ServeHTTP(httptest.NewRecorder(), first)

	sameIP := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	sameIP.RemoteAddr = "192.0.2.61:9999"
	sameRec := httptest.NewRecorder()
	handler.ServeHTTP(sameRec, sameIP)
	if sameRec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request from same IP got %d, want 429", sameRec.Code)
	}

	otherIP := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	otherIP.RemoteAddr = "192.0.2.62:1000"
	otherRec := httptest.NewRecorder()
	handler.ServeHTTP(otherRec, otherIP)
	if otherRec.Code != http.StatusNoContent {
		t.Fatalf("request from different IP got %d, want 204", otherRec.Code)
	}
}

func TestRateLimitDisabledWhenLimitNonPositive(t *testing.T) {
	handler := rateLimitedOK(0, time.Minute)

	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
		req.RemoteAddr = "192.0.2.70:3000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("request %d with limiting disabled got %d", i, rec.Code)
		}
	}
}

func TestRateLimitBudgetRecoversAfterWindow(t *testing.T) {
	handler := rateLimitedOK(2, 30*time.Millisecond)

	send := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/core/employees", nil)
		req.RemoteAddr = "192.0.2.80:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	send()
	send()
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("third request in window got %d, want 429", code)
	}

	time.Sleep(40 * time.Millisecond)

	if code := send(); code != http.StatusNoContent {
		t.Fatalf("request after window expiry got %d, want 204", code)
	}
}
