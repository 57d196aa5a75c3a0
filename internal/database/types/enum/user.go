package enum

import (
	"database/sql/driver"
	"fmt"
)

// UserRole controls access to the admin surface.
type UserRole int

const (
	UserRoleMember UserRole = iota
	UserRoleAdmin
)

var userRoleNames = map[UserRole]string{
	UserRoleMember: "MEMBER",
	UserRoleAdmin:  "ADMIN",
}

var userRoleValues = reverse(userRoleNames)

func (r UserRole) String() string { return userRoleNames[r] }

// ParseUserRole converts a wire name into a UserRole.
func ParseUserRole(s string) (UserRole, error) {
	v, ok := userRoleValues[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEnumValue, s)
	}

	return v, nil
}

func (r UserRole) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *UserRole) UnmarshalText(text []byte) error {
	v, err := ParseUserRole(string(text))
	if err != nil {
		return err
	}

	*r = v

	return nil
}

func (r UserRole) Value() (driver.Value, error) { return r.String(), nil }

func (r *UserRole) Scan(src any) error { return scanEnum(src, r, ParseUserRole) }
