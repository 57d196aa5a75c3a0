// Package ip resolves the client address for every request and stores it in
// the context. The abuse chain keys several checks on it, so a request
// without a usable address is rejected up front.
package ip

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

type ipCtxKey struct{}

// UnknownIP is returned when no valid IP can be determined.
const UnknownIP = "unknown"

// FromContext retrieves the client IP from the context.
func FromContext(ctx context.Context) string {
	if ip, ok := ctx.Value(ipCtxKey{}).(string); ok {
		return ip
	}

	return UnknownIP
}

// Middleware handles IP detection and stores it in the context.
type Middleware struct {
	logger *zap.Logger
}

// New creates a new IP middleware.
func New(logger *zap.Logger) *Middleware {
	return &Middleware{logger: logger.Named("ip")}
}

// AsRESTMiddleware returns a bunrouter middleware that resolves the client IP.
func (m *Middleware) AsRESTMiddleware(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		clientIP := m.getClientIP(req.Request)
		if clientIP == UnknownIP {
			m.logger.Warn("No valid client IP found in request")
			http.Error(w, "Invalid IP address", http.StatusForbidden)

			return nil
		}

		ctx := context.WithValue(req.Context(), ipCtxKey{}, clientIP)

		return next(w, req.WithContext(ctx))
	}
}

// getClientIP extracts the client IP, preferring forwarded headers set by the
// edge proxy. Forwarded entries are checked right to left so the value
// closest to the server wins.
func (m *Middleware) getClientIP(req *http.Request) string {
	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		entries := strings.Split(forwarded, ",")
		for i := len(entries) - 1; i >= 0; i-- {
			candidate := strings.TrimSpace(entries[i])
			if parsed := net.ParseIP(candidate); parsed != nil {
				return parsed.String()
			}
		}
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		m.logger.Debug("Failed to parse remote address",
			zap.String("addr", req.RemoteAddr),
			zap.Error(err))

		return UnknownIP
	}

	if parsed := net.ParseIP(host); parsed != nil {
		return parsed.String()
	}

	return UnknownIP
}
