package domain

import "fmt"

// Role determines which broadcast payload shape a viewer receives.
type Role string

const (
	RoleGeneric    Role = "generic"
	RoleChat       Role = "chat"
	RoleCommentary Role = "commentary"
	RoleMatchData  Role = "match-data"
)

// ParseRole converts a wire string into a Role. The empty string maps to
// RoleGeneric so plain viewers can omit the parameter.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "":
		return RoleGeneric, nil
	case RoleGeneric, RoleChat, RoleCommentary, RoleMatchData:
		return Role(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleGeneric, RoleChat, RoleCommentary, RoleMatchData:
		return true
	}
	return false
}
