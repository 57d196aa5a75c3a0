// Package ratelimit applies a per-IP token bucket to every request.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/promptcraft/voteguard/internal/rest/middleware/ip"
	"github.com/promptcraft/voteguard/internal/setup/config"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	errRateLimit  = "rate limit exceeded"
	headerRetryAt = "Retry-After"

	// Idle limiters are evicted after this long to bound the map.
	limiterTTL = 10 * time.Minute
)

type limiterState struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Middleware implements per-IP rate limiting for API requests.
type Middleware struct {
	limiters map[string]*limiterState
	config   *config.RateLimit
	logger   *zap.Logger
	mu       sync.Mutex
}

// New creates a new rate limiting middleware.
func New(config *config.RateLimit, logger *zap.Logger) *Middleware {
	return &Middleware{
		limiters: make(map[string]*limiterState),
		config:   config,
		logger:   logger.Named("ratelimit"),
	}
}

// AsRESTMiddleware returns a bunrouter middleware that enforces the per-IP
// token bucket. It must run after the IP middleware.
func (m *Middleware) AsRESTMiddleware(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		clientIP := ip.FromContext(req.Context())

		if !m.allow(clientIP) {
			m.logger.Debug("Rate limit exceeded", zap.String("ip", clientIP))
			w.Header().Set(headerRetryAt, "1")
			http.Error(w, errRateLimit, http.StatusTooManyRequests)

			return nil
		}

		return next(w, req)
	}
}

// allow reserves a token for the client, creating its limiter on first use.
func (m *Middleware) allow(clientIP string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()

	state, exists := m.limiters[clientIP]
	if !exists {
		m.prune(now)

		state = &limiterState{
			limiter: rate.NewLimiter(rate.Limit(m.config.RequestsPerSecond), m.config.BurstSize),
		}
		m.limiters[clientIP] = state
	}

	state.lastSeen = now

	return state.limiter.Allow()
}

// prune evicts limiters idle past the TTL. Called with the lock held.
func (m *Middleware) prune(now time.Time) {
	for key, state := range m.limiters {
		if now.Sub(state.lastSeen) > limiterTTL {
			delete(m.limiters, key)
		}
	}
}
