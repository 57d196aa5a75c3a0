package ip_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/promptcraft/voteguard/internal/rest/middleware/ip"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

func TestMiddlewareResolvesClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		wantIP     string
		wantStatus int
	}{
		{
			name:       "remote address",
			remoteAddr: "203.0.113.10:51234",
			wantIP:     "203.0.113.10",
			wantStatus: http.StatusOK,
		},
		{
			name:       "forwarded header wins",
			remoteAddr: "10.0.0.1:51234",
			forwarded:  "198.51.100.7",
			wantIP:     "198.51.100.7",
			wantStatus: http.StatusOK,
		},
		{
			name:       "rightmost valid forwarded entry",
			remoteAddr: "10.0.0.1:51234",
			forwarded:  "198.51.100.7, 203.0.113.99",
			wantIP:     "203.0.113.99",
			wantStatus: http.StatusOK,
		},
		{
			name:       "garbage forwarded falls back to remote",
			remoteAddr: "203.0.113.10:51234",
			forwarded:  "not-an-ip",
			wantIP:     "203.0.113.10",
			wantStatus: http.StatusOK,
		},
		{
			name:       "unparseable remote is rejected",
			remoteAddr: "bogus",
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotIP string

			middleware := ip.New(zap.NewNop())
			router := bunrouter.New(bunrouter.Use(middleware.AsRESTMiddleware))
			router.GET("/", func(_ http.ResponseWriter, req bunrouter.Request) error {
				gotIP = ip.FromContext(req.Context())
				return nil
			})

			httpReq := httptest.NewRequest(http.MethodGet, "/", nil)
			httpReq.RemoteAddr = tt.remoteAddr

			if tt.forwarded != "" {
				httpReq.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httpReq)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantIP, gotIP)
			}
		})
	}
}

func TestFromContextWithoutMiddleware(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ip.UnknownIP, ip.FromContext(context.Background()))
}
