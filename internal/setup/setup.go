// Package setup bootstraps all application dependencies in the order they
// need each other: configuration, loggers, redis, mail, and the database
// client with its service container.
package setup

import (
	"context"
	"fmt"

	"github.com/promptcraft/voteguard/internal/database"
	"github.com/promptcraft/voteguard/internal/notify"
	"github.com/promptcraft/voteguard/internal/redis"
	"github.com/promptcraft/voteguard/internal/setup/config"
	"github.com/promptcraft/voteguard/internal/setup/logging"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
type App struct {
	Config       *config.Config   // Application configuration
	Logger       *zap.Logger      // Main application logger
	DBLogger     *zap.Logger      // Database-specific logger
	DB           database.Client  // Database connection pool and services
	RedisManager *redis.Manager   // Redis connection manager
	LogManager   *logging.Manager // Log management system
}

// InitializeApp bootstraps all application dependencies in the correct
// order, ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, logDir string) (*App, error) {
	// Load app configuration
	cfg, configDir, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager, err := logging.NewManager(logDir, &cfg.Common.Debug)
	if err != nil {
		return nil, err
	}

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	logger.Info("Configuration loaded", zap.String("configDir", configDir))

	// Redis manager provides connection pools for worker coordination
	redisManager := redis.NewManager(&cfg.Common.Redis, logger)

	// Outbound mail for the monitoring pipeline
	mailer := notify.NewSMTPMailer(&cfg.Common.SMTP, logger)

	// Initialize database with migrations
	db, err := database.NewConnection(ctx, &cfg.Common, mailer, dbLogger, true)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &App{
		Config:       cfg,
		Logger:       logger,
		DBLogger:     dbLogger,
		DB:           db,
		RedisManager: redisManager,
		LogManager:   logManager,
	}, nil
}

// Cleanup releases all resources in reverse initialization order.
func (a *App) Cleanup(_ context.Context) {
	if err := a.DB.Close(); err != nil {
		a.Logger.Error("Failed to close database", zap.Error(err))
	}

	a.RedisManager.Close()

	_ = a.Logger.Sync()
	_ = a.DBLogger.Sync()
}
