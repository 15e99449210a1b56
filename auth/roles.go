package auth

import (
	"context"
	"fmt"
)

// Role is the closed set of account roles. Roles are totally ordered by
// rank; comparisons always go through the rank table so a typo'd role
// string can never grant access.
type Role string

const (
	RoleMember Role = "member"
	RolePastor Role = "pastor"
	RoleAdmin  Role = "admin"
)

// Rank values for use with HasPermission. Higher rank means more privilege.
const (
	RankMember = 1
	RankPastor = 2
	RankAdmin  = 3
)

var roleRanks = map[Role]int{
	RoleMember: RankMember,
	RolePastor: RankPastor,
	RoleAdmin:  RankAdmin,
}

// Rank returns the role's position in the hierarchy, or 0 for a role
// outside the closed set.
func (r Role) Rank() int {
	return roleRanks[r]
}

// ParseRole maps a role string onto the closed role set.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleRanks[r]; !ok {
		return "", fmt.Errorf("%q: %w", s, ErrUnknownRole)
	}
	return r, nil
}

// User is the subset of the identity record this core consumes. It is
// owned and mutated by the identity provider; the authorization core
// only reads it.
type User struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	// LinkedOwnerID identifies which business resource this account may
	// self-access (a member record ID). Empty when the account has no link.
	LinkedOwnerID string `json:"linked_owner_id,omitempty"`
	Active        bool   `json:"active"`
}

// Provider resolves user identities for session validation. Implementations
// live outside this package (see the identity package).
type Provider interface {
	UserByID(ctx context.Context, id string) (User, error)
}

// HasPermission reports whether role meets the required rank. Unknown
// roles rank 0 and never pass.
func HasPermission(role Role, requiredRank int) bool {
	return role.Rank() >= requiredRank
}

// CanAccessOwnedResource reports whether user may touch the resource
// owned by resourceOwnerID. Pastor and Admin may access any resource;
// a Member only its own linked record, and never when no record is linked.
func CanAccessOwnedResource(user User, resourceOwnerID string) bool {
	if HasPermission(user.Role, RankPastor) {
		return true
	}
	if user.Role != RoleMember {
		return false
	}
	return user.LinkedOwnerID != "" && user.LinkedOwnerID == resourceOwnerID
}
