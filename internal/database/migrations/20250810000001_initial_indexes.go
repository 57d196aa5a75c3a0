package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		// Indexes backing the abuse counters and the admin listing filters.
		indexes := []string{
			"CREATE INDEX IF NOT EXISTS votes_user_created_idx ON votes (user_id, created_at)",
			"CREATE INDEX IF NOT EXISTS votes_ip_created_idx ON votes (ip_address, created_at)",
			"CREATE INDEX IF NOT EXISTS votes_user_agent_idx ON votes (user_agent)",
			"CREATE INDEX IF NOT EXISTS votes_voter_author_idx ON votes (user_id, author_id)",
			"CREATE INDEX IF NOT EXISTS detections_created_idx ON vote_abuse_detections (created_at)",
			"CREATE INDEX IF NOT EXISTS detections_type_created_idx ON vote_abuse_detections (abuse_type, created_at)",
			"CREATE INDEX IF NOT EXISTS detections_ip_created_idx ON vote_abuse_detections (ip_address, created_at)",
			"CREATE INDEX IF NOT EXISTS detections_status_idx ON vote_abuse_detections (status)",
			"CREATE INDEX IF NOT EXISTS credit_tx_user_created_idx ON credit_transactions (user_id, created_at)",
			"CREATE INDEX IF NOT EXISTS audit_resource_idx ON audit_logs (resource, resource_id)",
			"CREATE INDEX IF NOT EXISTS users_api_key_idx ON users (api_key)",
		}

		for _, stmt := range indexes {
			if _, err := db.NewRaw(stmt).Exec(ctx); err != nil {
				return fmt.Errorf("failed to create index: %w", err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			"votes_user_created_idx", "votes_ip_created_idx", "votes_user_agent_idx",
			"votes_voter_author_idx", "detections_created_idx", "detections_type_created_idx",
			"detections_ip_created_idx", "detections_status_idx", "credit_tx_user_created_idx",
			"audit_resource_idx", "users_api_key_idx",
		}
		for _, name := range indexes {
			if _, err := db.NewRaw(fmt.Sprintf("DROP INDEX IF EXISTS %s", name)).Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop index %s: %w", name, err)
			}
		}

		return nil
	})
}
