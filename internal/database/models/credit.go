package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/promptcraft/voteguard/internal/database/dbretry"
	"github.com/promptcraft/voteguard/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// CreditModel handles the credit ledger and balance debits.
type CreditModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewCredit creates a new credit model.
func NewCredit(db *bun.DB, logger *zap.Logger) *CreditModel {
	return &CreditModel{
		db:     db,
		logger: logger.Named("db_credit"),
	}
}

// Spend debits a user's balance. The balance guard lives in the UPDATE
// predicate, so two concurrent debits against the same balance cannot both
// succeed; the loser sees ErrInsufficientCredits.
func (r *CreditModel) Spend(ctx context.Context, tx *types.CreditTransaction) error {
	if tx.Amount >= 0 {
		return fmt.Errorf("spend amount must be negative, got %d", tx.Amount)
	}

	tx.CreatedAt = time.Now()
	cost := -tx.Amount

	err := dbretry.Transaction(ctx, r.db, func(ctx context.Context, dbTx bun.Tx) error {
		res, err := dbTx.NewUpdate().
			Model((*types.User)(nil)).
			Set("credit_balance = credit_balance - ?", cost).
			Where("id = ?", tx.UserID).
			Where("credit_balance >= ?", cost).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to debit balance: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}

		if affected == 0 {
			return types.ErrInsufficientCredits
		}

		if _, err := dbTx.NewInsert().Model(tx).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert ledger entry: %w", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, types.ErrInsufficientCredits) {
			return types.ErrInsufficientCredits
		}

		return err
	}

	return nil
}
