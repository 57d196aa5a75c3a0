// Package rest wires the HTTP API: vote submission for authenticated users
// and the abuse-monitoring surface for admins.
package rest

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
	"github.com/promptcraft/voteguard/internal/database"
	"github.com/promptcraft/voteguard/internal/rest/handler"
	"github.com/promptcraft/voteguard/internal/rest/middleware/auth"
	"github.com/promptcraft/voteguard/internal/rest/middleware/ip"
	"github.com/promptcraft/voteguard/internal/rest/middleware/ratelimit"
	"github.com/promptcraft/voteguard/internal/setup/config"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// Server implements the REST API service.
type Server struct {
	voteHandler  *handler.VoteHandler
	abuseHandler *handler.AbuseHandler
}

// NewServer creates a new REST API server.
func NewServer(db database.Client, logger *zap.Logger, config *config.APIConfig) http.Handler {
	// Create server instance with handlers
	server := &Server{
		voteHandler:  handler.NewVoteHandler(db, logger),
		abuseHandler: handler.NewAbuseHandler(db, logger),
	}

	// Create middleware instances
	ipMiddleware := ip.New(logger)
	authMiddleware := auth.New(db.Model().User(), logger)
	rateLimiter := ratelimit.New(&config.RateLimit, logger)

	// Create base router
	router := bunrouter.New()

	router.Use(
		ipMiddleware.AsRESTMiddleware,
		rateLimiter.AsRESTMiddleware,
		authMiddleware.AsRESTMiddleware,
	).WithGroup("/v1", func(g *bunrouter.Group) {
		g.POST("/prompts/:id/vote", server.voteHandler.SubmitVote)

		g.Use(authMiddleware.RequireAdmin).WithGroup("/admin/abuse", func(admin *bunrouter.Group) {
			admin.GET("/system-health", server.abuseHandler.GetSystemHealth)
			admin.GET("/statistics", server.abuseHandler.GetStatistics)
			admin.GET("/detections", server.abuseHandler.ListDetections)
			admin.POST("/investigate", server.abuseHandler.Investigate)
		})
	})

	// Add gzip compression
	return gzhttp.GzipHandler(router)
}
