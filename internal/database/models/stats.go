package models

import (
	"context"
	"fmt"

	"github.com/promptcraft/voteguard/internal/database/dbretry"
	"github.com/promptcraft/voteguard/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// StatsModel persists hourly volume snapshots written by the report worker.
type StatsModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewStats creates a new stats model.
func NewStats(db *bun.DB, logger *zap.Logger) *StatsModel {
	return &StatsModel{
		db:     db,
		logger: logger.Named("db_stats"),
	}
}

// SaveHourlyStats upserts the snapshot for its hour.
func (r *StatsModel) SaveHourlyStats(ctx context.Context, stats *types.HourlyStats) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewInsert().
			Model(stats).
			On("CONFLICT (timestamp) DO UPDATE").
			Set("votes = EXCLUDED.votes").
			Set("rewards = EXCLUDED.rewards").
			Set("detections = EXCLUDED.detections").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to save hourly stats: %w", err)
		}

		return nil
	})
}
