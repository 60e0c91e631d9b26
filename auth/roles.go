package auth

import (
	"fmt"
	"sort"
)

// Role is a label granting access to role gated operations
type Role string

const (
	// RoleAdmin can manage identities
	RoleAdmin Role = "ROLE_ADMIN"
	// RoleUser is a regular authenticated principal
	RoleUser Role = "ROLE_USER"
)

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []Role {
	return []Role{
		RoleAdmin,
		RoleUser,
	}
}

// ParseRole safely parses a string into a Role type
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}

// ParseRoles parses role labels at the boundary. Duplicates are dropped and
// the first unknown label is reported. A nil input yields an empty set.
func ParseRoles(labels []string) (Roles, error) {
	out := make(Roles, 0, len(labels))
	seen := make(map[Role]struct{}, len(labels))
	for _, label := range labels {
		role, ok := ParseRole(label)
		if !ok {
			return nil, ErrUnknownRole.Clone().WithMetadata(map[string]any{
				"role": label,
			})
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out, nil
}

// Roles is the role set of an identity. Order carries no meaning.
type Roles []Role

// Has reports whether role is part of the set
func (rs Roles) Has(role Role) bool {
	for _, r := range rs {
		if r == role {
			return true
		}
	}
	return false
}

// Strings returns the labels, never nil
func (rs Roles) Strings() []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, string(r))
	}
	return out
}

// Sorted returns a copy ordered by label, used when comparing sets
func (rs Roles) Sorted() Roles {
	out := append(Roles{}, rs...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (rs Roles) String() string {
	return fmt.Sprintf("%v", rs.Strings())
}
