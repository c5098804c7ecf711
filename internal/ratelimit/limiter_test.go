package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pgregory.net/rapid"
)

func testLimiter_BurstAllowed(t *rapid.T) {
	burst := rapid.IntRange(1, 50).Draw(t, "burst")
	l := New(Config{RPS: 0.001, Burst: burst, CleanupInterval: time.Hour})
	defer l.Stop()

	key := rapid.StringMatching(`[a-z0-9]{4,16}`).Draw(t, "key")
	for i := 0; i < burst; i++ {
		if !l.Allow(key) {
			t.Fatalf("request %d of burst %d refused", i+1, burst)
		}
	}
	if l.Allow(key) {
		t.Fatalf("request beyond burst %d allowed", burst)
	}
}

func TestLimiter_BurstAllowed(t *testing.T) {
	rapid.Check(t, testLimiter_BurstAllowed)
}

func testLimiter_KeysIndependent(t *rapid.T) {
	l := New(Config{RPS: 0.001, Burst: 1, CleanupInterval: time.Hour})
	defer l.Stop()

	keys := rapid.SliceOfNDistinct(rapid.StringMatching(`[a-z]{3,10}`), 1, 20, rapid.ID[string]).Draw(t, "keys")
	for _, k := range keys {
		if !l.Allow(k) {
			t.Fatalf("first request for %q refused", k)
		}
	}
	if l.Len() != len(keys) {
		t.Fatalf("Len() = %d, want %d", l.Len(), len(keys))
	}
}

func TestLimiter_KeysIndependent(t *testing.T) {
	rapid.Check(t, testLimiter_KeysIndependent)
}

func TestLimiter_Cleanup(t *testing.T) {
	l := New(Config{RPS: 1, Burst: 1, CleanupInterval: time.Hour})
	defer l.Stop()

	l.Allow("a")
	l.mu.Lock()
	l.limiters["a"].lastUsed = time.Now().Add(-2 * time.Hour)
	l.mu.Unlock()
	l.Allow("b")

	l.Cleanup()
	if l.Len() != 1 {
		t.Fatalf("Len() after cleanup = %d, want 1", l.Len())
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name   string
		auth   string
		remote string
		want   string
	}{
		{"bearer", "Bearer abc", "10.0.0.1:1234", "token:abc"},
		{"no auth", "", "10.0.0.1:1234", "addr:10.0.0.1"},
		{"basic auth ignored", "Basic xyz", "10.0.0.2:80", "addr:10.0.0.2"},
		{"bare remote", "", "pipe", "addr:pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.auth != "" {
				r.Header.Set("Authorization", tt.auth)
			}
			if got := ClientKey(r); got != tt.want {
				t.Fatalf("ClientKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMiddleware_Throttles(t *testing.T) {
	l := New(Config{RPS: 0.001, Burst: 2, CleanupInterval: time.Hour})
	defer l.Stop()

	h := Middleware(l, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 3)
	for i := range codes {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes[i] = rec.Code
		if i == 2 && rec.Header().Get("Retry-After") != "1" {
			t.Fatalf("Retry-After = %q, want 1", rec.Header().Get("Retry-After"))
		}
	}
	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("codes = %v, want %v", codes, want)
		}
	}
}
