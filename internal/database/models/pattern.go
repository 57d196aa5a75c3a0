package models

import (
	"context"
	"fmt"
	"time"

	"github.com/promptcraft/voteguard/internal/database/dbretry"
	"github.com/promptcraft/voteguard/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// PatternModel handles database operations for per-user vote patterns.
type PatternModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewPattern creates a new pattern model.
func NewPattern(db *bun.DB, logger *zap.Logger) *PatternModel {
	return &PatternModel{
		db:     db,
		logger: logger.Named("db_pattern"),
	}
}

// Upsert appends a suspicious pattern label to the user's accumulator and
// adds the alert's risk score, creating the row on first use.
func (r *PatternModel) Upsert(ctx context.Context, userID uint64, pattern string, riskDelta float64) error {
	row := &types.VotePattern{
		UserID:             userID,
		RiskScore:          riskDelta,
		SuspiciousPatterns: []string{pattern},
		UpdatedAt:          time.Now(),
	}

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewInsert().
			Model(row).
			On("CONFLICT (user_id) DO UPDATE").
			Set("risk_score = vote_patterns.risk_score + EXCLUDED.risk_score").
			Set("suspicious_patterns = array_append(vote_patterns.suspicious_patterns, ?)", pattern).
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert vote pattern: %w", err)
		}

		return nil
	})
}
