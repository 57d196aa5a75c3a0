package types

import (
	"errors"
	"time"
)

// Vote value constants.
const (
	VoteValueUp   = 1
	VoteValueDown = -1
)

// ErrVoteNotFound indicates a lookup for a vote that does not exist.
var ErrVoteNotFound = errors.New("vote not found")

// Vote records a single user's vote on a prompt. A user holds at most one
// vote per prompt; re-voting with the same value removes the row and an
// opposite value updates it in place.
type Vote struct {
	ID        uint64    `bun:",pk,autoincrement" json:"id"`
	UserID    uint64    `bun:",notnull"          json:"userId"`
	PromptID  uint64    `bun:",notnull"          json:"promptId"`
	AuthorID  uint64    `bun:",notnull"          json:"authorId"` // Author of the voted prompt
	Value     int       `bun:",notnull"          json:"value"`    // 1 or -1
	IPAddress string    `bun:",notnull"          json:"-"`
	UserAgent string    `bun:",type:text"        json:"-"`
	CreatedAt time.Time `bun:",notnull"          json:"createdAt"`
	UpdatedAt time.Time `bun:",notnull"          json:"updatedAt"`
}
