package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/circuitforge/registry/pkg/logger"
)

func TestRateLimiterKeysByAccount(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := rl.Handler(next)

	do := func(accountID string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/packages/list", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if accountID != "" {
			req = req.WithContext(logger.WithAccountID(req.Context(), accountID))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do("acct-a"); code != http.StatusOK {
		t.Fatalf("first request for acct-a: %d", code)
	}
	if code := do("acct-a"); code != http.StatusTooManyRequests {
		t.Fatalf("burst exceeded for acct-a should be 429, got %d", code)
	}

	// A different account has its own bucket even from the same address.
	if code := do("acct-b"); code != http.StatusOK {
		t.Fatalf("first request for acct-b: %d", code)
	}

	// Anonymous traffic falls back to the remote address.
	if code := do(""); code != http.StatusOK {
		t.Fatalf("first anonymous request: %d", code)
	}
	if code := do(""); code != http.StatusTooManyRequests {
		t.Fatalf("second anonymous request should be 429, got %d", code)
	}
}
