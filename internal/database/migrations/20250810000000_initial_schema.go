package migrations

import (
	"context"
	"fmt"

	"github.com/promptcraft/voteguard/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.User)(nil),
			(*types.Prompt)(nil),
			(*types.Vote)(nil),
			(*types.VoteReward)(nil),
			(*types.VoteAbuseDetection)(nil),
			(*types.VotePattern)(nil),
			(*types.CreditTransaction)(nil),
			(*types.AuditLog)(nil),
			(*types.HourlyStats)(nil),
		}

		for _, model := range models {
			_, err := db.NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create table for %T: %w", model, err)
			}
		}

		// One vote per user per prompt.
		_, err := db.NewCreateIndex().
			Model((*types.Vote)(nil)).
			Index("votes_user_prompt_idx").
			Column("user_id", "prompt_id").
			Unique().
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create vote unique index: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		tables := []string{
			"hourly_stats", "audit_logs", "credit_transactions", "vote_patterns",
			"vote_abuse_detections", "vote_rewards", "votes", "prompts", "users",
		}
		for _, table := range tables {
			if _, err := db.NewDropTable().Table(table).IfExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop table %s: %w", table, err)
			}
		}

		return nil
	})
}
