package types

import (
	"time"
)

// VotePattern is a rolling per-user risk accumulator. Each abuse alert
// appends its pattern label and adds its score; the row is created on first
// use.
type VotePattern struct {
	UserID             uint64    `bun:",pk"                  json:"userId"`
	RiskScore          float64   `bun:",notnull"             json:"riskScore"`
	SuspiciousPatterns []string  `bun:",array"               json:"suspiciousPatterns"`
	UpdatedAt          time.Time `bun:",notnull"             json:"updatedAt"`
}
