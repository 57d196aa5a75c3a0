package models

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/promptcraft/voteguard/internal/database/dbretry"
	"github.com/promptcraft/voteguard/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// AuditModel handles the append-only audit log.
type AuditModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewAudit creates a new audit model.
func NewAudit(db *bun.DB, logger *zap.Logger) *AuditModel {
	return &AuditModel{
		db:     db,
		logger: logger.Named("db_audit"),
	}
}

// Insert appends an audit entry.
func (r *AuditModel) Insert(ctx context.Context, entry *types.AuditLog) error {
	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now()

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewInsert().Model(entry).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert audit entry: %w", err)
		}

		return nil
	})
}
