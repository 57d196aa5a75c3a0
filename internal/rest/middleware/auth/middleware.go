// Package auth resolves the bearer API key on every request to a user row
// and gates the admin surface on the user's role.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/promptcraft/voteguard/internal/database/types"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

type userCtxKey struct{}

// UserStore is the lookup the middleware needs to resolve API keys.
type UserStore interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*types.User, error)
}

// FromContext retrieves the authenticated user from the context. Handlers
// behind the middleware can rely on a non-nil result.
func FromContext(ctx context.Context) *types.User {
	if user, ok := ctx.Value(userCtxKey{}).(*types.User); ok {
		return user
	}

	return nil
}

// Middleware authenticates requests by bearer API key.
type Middleware struct {
	users  UserStore
	logger *zap.Logger
}

// New creates a new auth middleware.
func New(users UserStore, logger *zap.Logger) *Middleware {
	return &Middleware{
		users:  users,
		logger: logger.Named("auth"),
	}
}

// AsRESTMiddleware resolves the Authorization header to a user and stores it
// in the context. Missing or unknown keys get a 401.
func (m *Middleware) AsRESTMiddleware(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		apiKey := extractBearer(req.Header.Get("Authorization"))
		if apiKey == "" {
			http.Error(w, "Missing API key", http.StatusUnauthorized)
			return nil
		}

		user, err := m.users.GetByAPIKey(req.Context(), apiKey)
		if err != nil {
			if errors.Is(err, types.ErrUserNotFound) {
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return nil
			}

			m.logger.Error("Failed to resolve API key", zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)

			return nil
		}

		ctx := context.WithValue(req.Context(), userCtxKey{}, user)

		return next(w, req.WithContext(ctx))
	}
}

// RequireAdmin rejects authenticated users without the admin role. It must
// run after AsRESTMiddleware.
func (m *Middleware) RequireAdmin(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		user := FromContext(req.Context())
		if user == nil {
			http.Error(w, "Missing API key", http.StatusUnauthorized)
			return nil
		}

		if !user.IsAdmin() {
			m.logger.Warn("Non-admin user attempted admin endpoint",
				zap.Uint64("userID", user.ID))
			http.Error(w, "Admin role required", http.StatusForbidden)

			return nil
		}

		return next(w, req)
	}
}

func extractBearer(header string) string {
	if header == "" {
		return ""
	}

	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
