// Package abuse implements the ordered heuristic chain that classifies vote
// submissions before any reward is granted. Checks run in a fixed priority
// order and short-circuit: the first finding wins and determines the recorded
// abuse type when several conditions hold at once.
package abuse

import (
	"context"
	"time"

	"github.com/promptcraft/voteguard/internal/database/types"
	"github.com/promptcraft/voteguard/internal/database/types/enum"
)

// Context carries everything a check may inspect about one vote submission.
type Context struct {
	VoteID         uint64
	VoterID        uint64
	AuthorID       uint64
	PromptID       uint64
	Value          int
	IPAddress      string
	UserAgent      string
	VoterCreatedAt time.Time
	Now            time.Time
}

// CounterSource supplies the point-in-time aggregate counts the heuristics
// read. The vote model implements it against Postgres; tests use fakes.
type CounterSource interface {
	CountByUserSince(ctx context.Context, userID uint64, since time.Time) (int, error)
	CountByIPSince(ctx context.Context, ipAddress string, since time.Time) (int, error)
	DistinctUsersByIP(ctx context.Context, ipAddress string) (int, error)
	DistinctUsersByAgent(ctx context.Context, userAgent string) (int, error)
	CountByVoterForAuthor(ctx context.Context, voterID, authorID uint64) (int, error)
	RecentVoteTimes(ctx context.Context, userID uint64, limit int) ([]time.Time, error)
}

// Finding is a non-empty check result. It carries the classification that
// will be persisted and the typed evidence that tripped it.
type Finding struct {
	Type      enum.AbuseType
	Severity  enum.AbuseSeverity
	Reason    string
	RiskScore float64
	Evidence  types.Evidence
}
