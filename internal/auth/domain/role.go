package domain

import (
	"errors"
	"fmt"
)

// Role is the subject's position in the community hierarchy. Roles form a
// total order: USER < MODERATOR < ADMIN. Authorization is a simple level
// comparison, never a per-role permission list.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

var ErrUnknownRole = errors.New("domain: unknown role")

// Level maps a role to its rank in the order. Unknown roles rank below
// every real role so a corrupted value can never satisfy a requirement.
func (r Role) Level() int {
	switch r {
	case RoleUser:
		return 1
	case RoleModerator:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

// Satisfies reports whether r meets or exceeds the required role.
func (r Role) Satisfies(required Role) bool {
	return r.Level() >= required.Level() && required.Level() > 0
}

func (r Role) String() string { return string(r) }

// ParseRole validates a stored or transmitted role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleModerator, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}
