// Package ratelimit implements fixed-window request limits keyed by client.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter counts hits per key inside a fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

const tokenPrefixLen = 32

// ClientIdentifier keys a request by client address and bearer token prefix.
func ClientIdentifier(r *http.Request) string {
	ip := ""
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if ip == "" {
		ip = strings.TrimSpace(r.Header.Get("X-Real-IP"))
	}
	if ip == "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ip = host
		} else {
			ip = r.RemoteAddr
		}
	}
	if ip == "" {
		ip = "unknown"
	}

	token := ""
	if ah := r.Header.Get("Authorization"); len(ah) > len("Bearer ") {
		token = ah[len("Bearer "):]
		if len(token) > tokenPrefixLen {
			token = token[:tokenPrefixLen]
		}
	}
	return ip + ":" + token
}
