package limiter

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_DisabledWhenRPMZero(t *testing.T) {
	mw := Middleware(NewRateLimiter(nil), 0, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/translate", nil)
	mw(okHandler()).ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get(headerRateLimitRequests) != "" {
		t.Fatal("disabled limiter must not set rate limit headers")
	}
}

func TestMiddleware_SetsHeadersOnAllowedRequest(t *testing.T) {
	mw := Middleware(NewRateLimiter(nil), 60, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/translate", nil)
	r.Header.Set(headerClientID, "client-1")
	mw(okHandler()).ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get(headerRateLimitRequests) != "60" {
		t.Fatalf("expected limit header 60, got %q", w.Header().Get(headerRateLimitRequests))
	}
	if w.Header().Get(headerRateLimitRemainingRequests) == "" {
		t.Fatal("expected remaining header")
	}
}

func TestClientID(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/v1/translate", nil)
	r.Header.Set(headerClientID, "client-7")
	if got := ClientID(r); got != "client-7" {
		t.Fatalf("expected header client id, got %q", got)
	}

	r = httptest.NewRequest(http.MethodPost, "/v1/translate", nil)
	r.RemoteAddr = "10.0.0.5:4312"
	if got := ClientID(r); got != "10.0.0.5" {
		t.Fatalf("expected remote host fallback, got %q", got)
	}
}
