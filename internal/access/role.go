package access

import (
	"fmt"
	"strings"
)

// Role is the privilege level of an actor. The zero value is Guest, so an
// unauthenticated request never accidentally carries privileges.
type Role int

const (
	Guest Role = iota
	User
	Moderator
	Admin
)

var roleNames = map[Role]string{
	Guest:     "guest",
	User:      "user",
	Moderator: "moderator",
	Admin:     "admin",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// AtLeast reports whether r grants every privilege of other.
func (r Role) AtLeast(other Role) bool {
	return r >= other
}

// ParseRole parses a stored role. Guest is not a storable role: a persisted
// account is always at least a user.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return User, nil
	case "moderator":
		return Moderator, nil
	case "admin":
		return Admin, nil
	}
	return Guest, fmt.Errorf("unknown role %q", s)
}

// StorableRoles lists the values accepted for users.role.
func StorableRoles() []string {
	return []string{User.String(), Moderator.String(), Admin.String()}
}
