package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/logicflow/engine/internal/api/types"
	"github.com/logicflow/engine/internal/ratelimit"
	appErr "github.com/logicflow/engine/pkg/errors"
	"github.com/logicflow/engine/pkg/logger"
)

type limiterEntry struct {
	limiter *rate.Limiter
	last    time.Time
}

// IPThrottle is a coarse per-IP token bucket in front of the whole router.
type IPThrottle struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[string]*limiterEntry
}

// NewIPThrottle allows rps requests per second per IP with the given burst.
func NewIPThrottle(rps float64, burst int) *IPThrottle {
	return &IPThrottle{rps: rate.Limit(rps), burst: burst, visitors: map[string]*limiterEntry{}}
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (t *IPThrottle) allow(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	le, ok := t.visitors[ip]
	if !ok {
		le = &limiterEntry{limiter: rate.NewLimiter(t.rps, t.burst)}
		t.visitors[ip] = le
	}
	le.last = time.Now()
	return le.limiter.Allow()
}

// Evict drops visitors idle for longer than idle.
func (t *IPThrottle) Evict(idle time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for k, v := range t.visitors {
		if time.Since(v.last) > idle {
			delete(t.visitors, k)
			n++
		}
	}
	return n
}

// Handler is the middleware.
func (t *IPThrottle) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.allow(clientIP(r)) {
			types.WriteError(w, appErr.New(appErr.CodeRateLimited, "too many requests, please try again later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WindowLimit applies a fixed-window limiter keyed by ratelimit.ClientIdentifier
// and reports the window in X-RateLimit-* headers.
func WindowLimit(l ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := l.Allow(r.Context(), ratelimit.ClientIdentifier(r))
			if err != nil {
				// Fail open while the counter store is down.
				logger.L().Warn("rate limiter unavailable", zap.String("id", GetRequestID(r.Context())), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-RateLimit-Reset", res.ResetAt.UTC().Format(time.RFC3339))
			if !res.Allowed {
				h.Set("Retry-After", strconv.Itoa(int(time.Until(res.ResetAt).Seconds())+1))
				types.WriteError(w, appErr.New(appErr.CodeRateLimited, "too many requests, please try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
