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

// PromptModel handles prompt lookups for the vote endpoint.
type PromptModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewPrompt creates a new prompt model.
func NewPrompt(db *bun.DB, logger *zap.Logger) *PromptModel {
	return &PromptModel{
		db:     db,
		logger: logger.Named("db_prompt"),
	}
}

// GetByID retrieves a prompt by its ID.
func (r *PromptModel) GetByID(ctx context.Context, id uint64) (*types.Prompt, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Prompt, error) {
		var prompt types.Prompt

		err := r.db.NewSelect().
			Model(&prompt).
			Where("id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrPromptNotFound
			}

			return nil, fmt.Errorf("failed to get prompt: %w", err)
		}

		return &prompt, nil
	})
}
