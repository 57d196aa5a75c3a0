package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/promptcraft/voteguard/internal/database/dbretry"
	"github.com/promptcraft/voteguard/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// UserModel handles database operations for the user slice this service
// reads: plan tier, account age, credit balance, and API key auth.
type UserModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewUser creates a new user model.
func NewUser(db *bun.DB, logger *zap.Logger) *UserModel {
	return &UserModel{
		db:     db,
		logger: logger.Named("db_user"),
	}
}

// GetByID retrieves a user by ID.
func (r *UserModel) GetByID(ctx context.Context, id uint64) (*types.User, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.User, error) {
		var user types.User

		err := r.db.NewSelect().
			Model(&user).
			Where("id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrUserNotFound
			}

			return nil, fmt.Errorf("failed to get user: %w", err)
		}

		return &user, nil
	})
}

// GetByAPIKey resolves a bearer key to a user for request authentication.
func (r *UserModel) GetByAPIKey(ctx context.Context, apiKey string) (*types.User, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.User, error) {
		var user types.User

		err := r.db.NewSelect().
			Model(&user).
			Where("api_key = ?", apiKey).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrUserNotFound
			}

			return nil, fmt.Errorf("failed to get user by API key: %w", err)
		}

		return &user, nil
	})
}
