package types

import (
	"errors"
	"time"

	"github.com/promptcraft/voteguard/internal/database/types/enum"
)

// ErrUserNotFound indicates a lookup for a user that does not exist.
var ErrUserNotFound = errors.New("user not found")

// User is the slice of the account record this service reads and mutates:
// plan tier for reward scaling, creation time for the account-age heuristic,
// and the aggregate credit balance.
type User struct {
	ID            uint64        `bun:",pk,autoincrement" json:"id"`
	Name          string        `bun:",notnull"          json:"name"`
	Email         string        `bun:",notnull,unique"   json:"email"`
	APIKey        string        `bun:",notnull,unique"   json:"-"`
	Role          enum.UserRole `bun:",notnull"          json:"role"`
	PlanType      enum.PlanType `bun:",notnull"          json:"planType"`
	CreditBalance int           `bun:",notnull"          json:"creditBalance"`
	CreatedAt     time.Time     `bun:",notnull"          json:"createdAt"`
}

// IsAdmin reports whether the user may call the admin surface.
func (u *User) IsAdmin() bool { return u.Role == enum.UserRoleAdmin }
