package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/logicflow/engine/internal/api/types"
	appErr "github.com/logicflow/engine/pkg/errors"
)

type userKeyType string

const UserIDKey userKeyType = "user_id"

// Auth requires a Bearer HS256 JWT and puts its subject in the context.
func Auth(hmacSecret []byte) func(http.Handler) http.Handler {
	return authenticate(hmacSecret, true)
}

// OptionalAuth lets requests without an Authorization header through as guests
// but still rejects a header carrying an invalid token.
func OptionalAuth(hmacSecret []byte) func(http.Handler) http.Handler {
	return authenticate(hmacSecret, false)
}

func authenticate(hmacSecret []byte, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := r.Header.Get("Authorization")
			if ah == "" && !required {
				next.ServeHTTP(w, r)
				return
			}
			if !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				types.WriteError(w, appErr.New(appErr.CodeUnauthorized, "missing bearer token"))
				return
			}
			uid, err := ParseToken(hmacSecret, strings.TrimSpace(ah[len("Bearer "):]))
			if err != nil {
				types.WriteError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), UserIDKey, uid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ParseToken verifies an HS256 token and returns its subject.
func ParseToken(hmacSecret []byte, tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return hmacSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", appErr.Wrap(err, appErr.CodeUnauthorized, "invalid or expired token")
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", appErr.New(appErr.CodeUnauthorized, "token has no subject")
	}
	return sub, nil
}

// IssueToken signs an HS256 token for sub that expires after ttl.
func IssueToken(hmacSecret []byte, sub string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	})
	s, err := token.SignedString(hmacSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// GetUserID returns the authenticated user id, or "" for guests.
func GetUserID(ctx context.Context) string {
	if v := ctx.Value(UserIDKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
