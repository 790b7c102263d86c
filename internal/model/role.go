package model

import "fmt"

// Role is the privilege level of a staff account. Roles form a strict
// hierarchy: Owner > Moderator > Helper.
type Role string

const (
	RoleOwner     Role = "Owner"
	RoleModerator Role = "Moderator"
	RoleHelper    Role = "Helper"
)

// roleRank orders roles for privilege comparison. Higher outranks lower.
var roleRank = map[Role]int{
	RoleHelper:    1,
	RoleModerator: 2,
	RoleOwner:     3,
}

// ParseRole validates a role string received from clients or config.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleRank[r]; !ok {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Meets reports whether r satisfies the required privilege level.
// An Owner meets a Moderator requirement; the reverse does not hold.
func (r Role) Meets(required Role) bool {
	return roleRank[r] >= roleRank[required]
}
