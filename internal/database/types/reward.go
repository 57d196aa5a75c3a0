package types

import (
	"errors"
	"time"
)

// ErrRewardExists indicates a reward was already granted for a vote.
var ErrRewardExists = errors.New("reward already granted for vote")

// ErrRewardNotFound indicates a lookup for a reward that does not exist.
var ErrRewardNotFound = errors.New("reward not found")

// VoteReward records a credit grant caused by a qualifying upvote.
// The unique vote_id column makes re-processing a vote a no-op.
type VoteReward struct {
	ID        uint64    `bun:",pk,autoincrement" json:"id"`
	VoteID    uint64    `bun:",notnull,unique"   json:"voteId"`
	UserID    uint64    `bun:",notnull"          json:"userId"`  // Recipient (prompt author)
	VoterID   uint64    `bun:",notnull"          json:"voterId"` // Whose plan scaled the amount
	Amount    int       `bun:",notnull"          json:"amount"`
	CreatedAt time.Time `bun:",notnull"          json:"createdAt"`
}
