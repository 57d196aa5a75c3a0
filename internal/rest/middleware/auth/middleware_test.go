package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/promptcraft/voteguard/internal/database/types"
	"github.com/promptcraft/voteguard/internal/database/types/enum"
	"github.com/promptcraft/voteguard/internal/rest/middleware/auth"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

type fakeUserStore struct {
	byKey map[string]*types.User
}

func (f *fakeUserStore) GetByAPIKey(_ context.Context, apiKey string) (*types.User, error) {
	user, ok := f.byKey[apiKey]
	if !ok {
		return nil, types.ErrUserNotFound
	}

	return user, nil
}

func testStore() *fakeUserStore {
	return &fakeUserStore{byKey: map[string]*types.User{
		"member-key": {ID: 1, Role: enum.UserRoleMember},
		"admin-key":  {ID: 2, Role: enum.UserRoleAdmin},
	}}
}

func TestMiddlewareAuthenticates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUserID uint64
	}{
		{"missing header", "", http.StatusUnauthorized, 0},
		{"unknown key", "Bearer nope", http.StatusUnauthorized, 0},
		{"valid bearer key", "Bearer member-key", http.StatusOK, 1},
		{"bare key without prefix", "member-key", http.StatusOK, 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotUser *types.User

			middleware := auth.New(testStore(), zap.NewNop())
			router := bunrouter.New(bunrouter.Use(middleware.AsRESTMiddleware))
			router.GET("/", func(_ http.ResponseWriter, req bunrouter.Request) error {
				gotUser = auth.FromContext(req.Context())
				return nil
			})

			httpReq := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				httpReq.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httpReq)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantUserID, gotUser.ID)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		key        string
		wantStatus int
	}{
		{"admin passes", "admin-key", http.StatusOK},
		{"member is rejected", "member-key", http.StatusForbidden},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			middleware := auth.New(testStore(), zap.NewNop())
			router := bunrouter.New(bunrouter.Use(middleware.AsRESTMiddleware), bunrouter.Use(middleware.RequireAdmin))
			router.GET("/", func(http.ResponseWriter, bunrouter.Request) error {
				return nil
			})

			httpReq := httptest.NewRequest(http.MethodGet, "/", nil)
			httpReq.Header.Set("Authorization", "Bearer "+tt.key)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httpReq)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
