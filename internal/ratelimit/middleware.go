package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

// RetryAfterSeconds is sent in the Retry-After header of throttled responses.
const RetryAfterSeconds = 1

// ClientKey identifies the caller by bearer token, falling back to the remote host.
func ClientKey(r *http.Request) string {
	if tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "); tok != "" && tok != r.Header.Get("Authorization") {
		return "token:" + tok
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}

// Middleware answers 429 once a client exceeds its bucket. key selects the client;
// nil uses ClientKey.
func Middleware(l *Limiter, key func(*http.Request) string) func(http.Handler) http.Handler {
	if key == nil {
		key = ClientKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bucket := l.Get(key(r))
			if !bucket.Allow() {
				w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte("Too Many Requests"))
				return
			}
			remaining := int(bucket.Tokens())
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			next.ServeHTTP(w, r)
		})
	}
}
