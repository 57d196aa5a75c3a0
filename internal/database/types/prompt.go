package types

import (
	"errors"
	"time"
)

// ErrPromptNotFound is returned when a prompt lookup matches no row.
var ErrPromptNotFound = errors.New("prompt not found")

// Prompt is the voteable unit. VoteGuard only needs the authorship link; the
// content itself lives with the main application.
type Prompt struct {
	ID        uint64    `bun:",pk,autoincrement" json:"id"`
	AuthorID  uint64    `bun:",notnull"          json:"authorId"`
	Title     string    `bun:",notnull"          json:"title"`
	CreatedAt time.Time `bun:",notnull"          json:"createdAt"`
}
