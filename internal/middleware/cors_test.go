package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORSOriginMatching(t *testing.T) {
	mw := NewCORSMiddleware([]string{"https://app.circuitforge.dev", "example.com"})

	cases := []struct {
		origin  string
		allowed bool
	}{
		{"https://app.circuitforge.dev", true},
		{"https://example.com", true},
		{"https://www.example.com", true},
		{"https://evil-example.com", false},
		{"https://example.com.evil.net", false},
		{"https://circuitforge.dev", false},
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := mw.Handler(next)

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", tc.origin)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		got := rec.Header().Get("Access-Control-Allow-Origin")
		if tc.allowed && got != tc.origin {
			t.Fatalf("origin %s should be allowed, header %q", tc.origin, got)
		}
		if !tc.allowed && got != "" {
			t.Fatalf("origin %s should be rejected, header %q", tc.origin, got)
		}
	}
}

func TestCORSWildcardAllowsAnyOrigin(t *testing.T) {
	mw := NewCORSMiddleware([]string{"*"})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	req.Header.Set("Origin", "https://anywhere.test")
	rec := httptest.NewRecorder()
	mw.Handler(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://anywhere.test" {
		t.Fatalf("wildcard should echo origin, got %q", got)
	}
}
