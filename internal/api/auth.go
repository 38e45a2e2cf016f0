package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

type ctxKey string

const userIDKey ctxKey = "user_id"

// userIDFromContext returns the authenticated user of a request.
func userIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(userIDKey).(string)
	return uid
}

var errUnauthorized = errors.New("unauthorized")

// authenticator resolves the calling user. A Bearer token is accepted when a
// JWT secret is configured; otherwise the caller presents an API key and
// names the user in X-User-ID.
type authenticator struct {
	apiKeys   map[string]bool
	jwtSecret []byte
}

func newAuthenticator(keys []string, secret string) *authenticator {
	a := &authenticator{apiKeys: make(map[string]bool, len(keys))}
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			a.apiKeys[k] = true
		}
	}
	if secret != "" {
		a.jwtSecret = []byte(secret)
	}
	return a
}

func (a *authenticator) userID(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); a.jwtSecret != nil && strings.HasPrefix(h, "Bearer ") {
		return a.fromToken(strings.TrimPrefix(h, "Bearer "))
	}

	key := r.Header.Get("x-api-key")
	if key == "" || !a.apiKeys[key] {
		return "", errUnauthorized
	}
	uid := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if uid == "" {
		return "", fmt.Errorf("%w: X-User-ID missing", errUnauthorized)
	}
	return uid, nil
}

func (a *authenticator) fromToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.jwtSecret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: invalid token", errUnauthorized)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return "", fmt.Errorf("%w: subject missing", errUnauthorized)
	}
	return sub, nil
}

func (s *HTTPServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, err := s.auth.userID(r)
		if err != nil {
			s.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("request rejected")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, uid)))
	})
}

// userLimiter keeps one token bucket per user.
type userLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*userBucket
	lastGC   time.Time
}

type userBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// bucketIdle is how long an unused bucket is kept.
const bucketIdle = 10 * time.Minute

func newUserLimiter(perSecond float64, burst int) *userLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &userLimiter{limit: limit, burst: burst, limiters: make(map[string]*userBucket)}
}

func (l *userLimiter) allow(userID string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastGC) > bucketIdle {
		for id, b := range l.limiters {
			if now.Sub(b.lastSeen) > bucketIdle {
				delete(l.limiters, id)
			}
		}
		l.lastGC = now
	}

	b, ok := l.limiters[userID]
	if !ok {
		b = &userBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[userID] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

func (s *HTTPServer) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.allow(userIDFromContext(r.Context())) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
