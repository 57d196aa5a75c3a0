package types

import (
	"errors"
	"time"

	"github.com/promptcraft/voteguard/internal/database/types/enum"
)

// ErrInsufficientCredits indicates a debit that would overdraw a balance.
// Spending uses an atomic conditional update so two concurrent debits against
// the same balance cannot both succeed.
var ErrInsufficientCredits = errors.New("insufficient credits")

// CreditTransaction is an append-only ledger entry for any credit mutation.
type CreditTransaction struct {
	ID          uint64          `bun:",pk,autoincrement" json:"id"`
	UserID      uint64          `bun:",notnull"          json:"userId"`
	Amount      int             `bun:",notnull"          json:"amount"` // Negative for debits
	Type        enum.CreditType `bun:",notnull"          json:"type"`
	Description string          `bun:",type:text"        json:"description"`
	CreatedAt   time.Time       `bun:",notnull"          json:"createdAt"`
}
