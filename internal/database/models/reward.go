package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/promptcraft/voteguard/internal/database/dbretry"
	"github.com/promptcraft/voteguard/internal/database/types"
	"github.com/promptcraft/voteguard/internal/database/types/enum"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"
)

// RewardModel handles database operations for vote rewards and the credit
// grants they cause.
type RewardModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewReward creates a new reward model.
func NewReward(db *bun.DB, logger *zap.Logger) *RewardModel {
	return &RewardModel{
		db:     db,
		logger: logger.Named("db_reward"),
	}
}

// GetByVoteID retrieves the reward granted for a vote, if any.
func (r *RewardModel) GetByVoteID(ctx context.Context, voteID uint64) (*types.VoteReward, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.VoteReward, error) {
		var reward types.VoteReward

		err := r.db.NewSelect().
			Model(&reward).
			Where("vote_id = ?", voteID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrRewardNotFound
			}

			return nil, fmt.Errorf("failed to get reward: %w", err)
		}

		return &reward, nil
	})
}

// Grant atomically records a reward: the reward row, the ledger entry, and
// the recipient's balance increment commit in one transaction so no partial
// effect can survive a failure. The unique vote_id column turns a concurrent
// grant for the same vote into ErrRewardExists.
func (r *RewardModel) Grant(ctx context.Context, reward *types.VoteReward) error {
	reward.CreatedAt = time.Now()

	err := dbretry.Transaction(ctx, r.db, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(reward).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return types.ErrRewardExists
			}

			return fmt.Errorf("failed to insert reward: %w", err)
		}

		ledger := &types.CreditTransaction{
			UserID:      reward.UserID,
			Amount:      reward.Amount,
			Type:        enum.CreditTypeVoteReward,
			Description: fmt.Sprintf("Upvote reward for vote %d", reward.VoteID),
			CreatedAt:   reward.CreatedAt,
		}
		if _, err := tx.NewInsert().Model(ledger).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert credit transaction: %w", err)
		}

		_, err := tx.NewUpdate().
			Model((*types.User)(nil)).
			Set("credit_balance = credit_balance + ?", reward.Amount).
			Where("id = ?", reward.UserID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to increment credit balance: %w", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, types.ErrRewardExists) {
			return types.ErrRewardExists
		}

		return fmt.Errorf("failed to grant reward: %w", err)
	}

	return nil
}

// CountSince counts rewards granted after the cutoff.
func (r *RewardModel) CountSince(ctx context.Context, since time.Time) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := r.db.NewSelect().
			Model((*types.VoteReward)(nil)).
			Where("created_at > ?", since).
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count rewards: %w", err)
		}

		return count, nil
	})
}

// isUniqueViolation reports a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}

	return false
}
