package auth

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/evcraddock/estate-bids/internal/apperr"
	"github.com/evcraddock/estate-bids/internal/profile"
)

const (
	failureBurst  = 10
	failureRefill = 6 * time.Second
	limiterIdle   = 30 * time.Minute
)

// Authenticator is middleware that resolves the bearer token to an Identity.
type Authenticator struct {
	tokens   *Tokens
	profiles *profile.Repository
	failures *failureLimiter
}

// NewAuthenticator creates the request authenticator.
func NewAuthenticator(tokens *Tokens, profiles *profile.Repository) *Authenticator {
	return &Authenticator{
		tokens:   tokens,
		profiles: profiles,
		failures: newFailureLimiter(),
	}
}

// Require rejects requests without a valid token and stores the Identity in
// the request context otherwise. Public paths pass through untouched.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		if a.failures.blocked(ip) {
			writeAuthError(w, http.StatusTooManyRequests, "too many failed attempts")
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeAuthError(w, http.StatusUnauthorized, "authorization required")
			return
		}

		subject, err := a.tokens.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			a.failures.record(ip)
			slog.Debug("rejected token", "ip", ip, "error", err)
			writeAuthError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		p, err := a.profiles.GetByID(r.Context(), subject)
		if apperr.Is(err, apperr.KindNotFound) {
			a.failures.record(ip)
			writeAuthError(w, http.StatusUnauthorized, "unknown profile")
			return
		}
		if err != nil {
			slog.Error("resolving identity", "subject", subject, "error", err)
			http.Error(w, `{"error":"resolving identity failed"}`, http.StatusInternalServerError)
			return
		}

		ctx := WithIdentity(r.Context(), Identity{UserID: p.ID, Role: p.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isPublicPath(path string) bool {
	return path == "/health"
}

func writeAuthError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	resp := map[string]string{"error": msg, "kind": string(apperr.KindAuth)}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn("writing auth error", "error", err)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// failureLimiter tracks failed authentication attempts per IP.
type failureLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newFailureLimiter() *failureLimiter {
	return &failureLimiter{limiters: make(map[string]*ipLimiter)}
}

// blocked reports whether ip has exhausted its failure budget.
func (f *failureLimiter) blocked(ip string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.limiters[ip]
	if !ok {
		return false
	}
	return l.limiter.Tokens() < 1
}

// record spends one token of ip's failure budget.
func (f *failureLimiter) record(ip string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	for k, l := range f.limiters {
		if now.Sub(l.lastSeen) > limiterIdle {
			delete(f.limiters, k)
		}
	}

	l, ok := f.limiters[ip]
	if !ok {
		l = &ipLimiter{limiter: rate.NewLimiter(rate.Every(failureRefill), failureBurst)}
		f.limiters[ip] = l
	}
	l.lastSeen = now
	l.limiter.Allow()
}
