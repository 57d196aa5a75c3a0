package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/promptcraft/voteguard/internal/database/dbretry"
	"github.com/promptcraft/voteguard/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// VoteModel handles database operations for votes, including the aggregate
// counters the abuse heuristics read.
type VoteModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewVote creates a new vote model.
func NewVote(db *bun.DB, logger *zap.Logger) *VoteModel {
	return &VoteModel{
		db:     db,
		logger: logger.Named("db_vote"),
	}
}

// GetByUserAndPrompt retrieves a user's vote on a prompt.
func (r *VoteModel) GetByUserAndPrompt(ctx context.Context, userID, promptID uint64) (*types.Vote, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Vote, error) {
		var vote types.Vote

		err := r.db.NewSelect().
			Model(&vote).
			Where("user_id = ?", userID).
			Where("prompt_id = ?", promptID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrVoteNotFound
			}

			return nil, fmt.Errorf("failed to get vote: %w", err)
		}

		return &vote, nil
	})
}

// Create inserts a new vote.
func (r *VoteModel) Create(ctx context.Context, vote *types.Vote) error {
	now := time.Now()
	vote.CreatedAt = now
	vote.UpdatedAt = now

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewInsert().Model(vote).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create vote: %w", err)
		}

		return nil
	})
}

// UpdateValue flips an existing vote to the opposite value.
func (r *VoteModel) UpdateValue(ctx context.Context, voteID uint64, value int) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewUpdate().
			Model((*types.Vote)(nil)).
			Set("value = ?", value).
			Set("updated_at = ?", time.Now()).
			Where("id = ?", voteID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update vote value: %w", err)
		}

		return nil
	})
}

// Delete removes a vote. Used when a user re-votes with the same value.
func (r *VoteModel) Delete(ctx context.Context, voteID uint64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewDelete().
			Model((*types.Vote)(nil)).
			Where("id = ?", voteID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete vote: %w", err)
		}

		return nil
	})
}

// CountByUserSince counts votes a user cast after the cutoff.
func (r *VoteModel) CountByUserSince(ctx context.Context, userID uint64, since time.Time) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := r.db.NewSelect().
			Model((*types.Vote)(nil)).
			Where("user_id = ?", userID).
			Where("created_at > ?", since).
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count user votes: %w", err)
		}

		return count, nil
	})
}

// CountByIPSince counts votes cast from an IP address after the cutoff.
func (r *VoteModel) CountByIPSince(ctx context.Context, ipAddress string, since time.Time) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := r.db.NewSelect().
			Model((*types.Vote)(nil)).
			Where("ip_address = ?", ipAddress).
			Where("created_at > ?", since).
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count votes by IP: %w", err)
		}

		return count, nil
	})
}

// DistinctUsersByIP counts how many distinct users have voted from an IP.
func (r *VoteModel) DistinctUsersByIP(ctx context.Context, ipAddress string) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := r.db.NewSelect().
			Model((*types.Vote)(nil)).
			ColumnExpr("user_id").
			Where("ip_address = ?", ipAddress).
			Group("user_id").
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count distinct users by IP: %w", err)
		}

		return count, nil
	})
}

// DistinctUsersByAgent counts how many distinct users share a user agent string.
func (r *VoteModel) DistinctUsersByAgent(ctx context.Context, userAgent string) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := r.db.NewSelect().
			Model((*types.Vote)(nil)).
			ColumnExpr("user_id").
			Where("user_agent = ?", userAgent).
			Group("user_id").
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count distinct users by agent: %w", err)
		}

		return count, nil
	})
}

// CountByVoterForAuthor counts how often a voter has voted on one author's prompts.
func (r *VoteModel) CountByVoterForAuthor(ctx context.Context, voterID, authorID uint64) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := r.db.NewSelect().
			Model((*types.Vote)(nil)).
			Where("user_id = ?", voterID).
			Where("author_id = ?", authorID).
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count votes for author: %w", err)
		}

		return count, nil
	})
}

// RecentVoteTimes returns the creation times of a user's most recent votes,
// newest first, for temporal pattern analysis.
func (r *VoteModel) RecentVoteTimes(ctx context.Context, userID uint64, limit int) ([]time.Time, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]time.Time, error) {
		var times []time.Time

		err := r.db.NewSelect().
			Model((*types.Vote)(nil)).
			Column("created_at").
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Limit(limit).
			Scan(ctx, &times)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent vote times: %w", err)
		}

		return times, nil
	})
}

// CountAllSince counts every vote cast after the cutoff.
func (r *VoteModel) CountAllSince(ctx context.Context, since time.Time) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := r.db.NewSelect().
			Model((*types.Vote)(nil)).
			Where("created_at > ?", since).
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count votes: %w", err)
		}

		return count, nil
	})
}
