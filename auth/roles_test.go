package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleRankOrdering(t *testing.T) {
	assert.Greater(t, RoleAdmin.Rank(), RolePastor.Rank())
	assert.Greater(t, RolePastor.Rank(), RoleMember.Rank())
	assert.Zero(t, Role("visitor").Rank(), "unknown roles rank below every known role")
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		required int
		want     bool
	}{
		{"admin meets admin", RoleAdmin, RankAdmin, true},
		{"admin meets member", RoleAdmin, RankMember, true},
		{"pastor meets pastor", RolePastor, RankPastor, true},
		{"pastor lacks admin", RolePastor, RankAdmin, false},
		{"member meets member", RoleMember, RankMember, true},
		{"member lacks pastor", RoleMember, RankPastor, false},
		{"unknown role lacks member", Role("visitor"), RankMember, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasPermission(tt.role, tt.required))
		})
	}
}

func TestCanAccessOwnedResource(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		ownerID string
		want    bool
	}{
		{"admin accesses anyone", User{Role: RoleAdmin}, "7", true},
		{"pastor accesses anyone", User{Role: RolePastor}, "7", true},
		{"member accesses linked record", User{Role: RoleMember, LinkedOwnerID: "7"}, "7", true},
		{"member denied other record", User{Role: RoleMember, LinkedOwnerID: "7"}, "8", false},
		{"member with no link denied", User{Role: RoleMember}, "7", false},
		{"unlinked member denied empty owner", User{Role: RoleMember}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAccessOwnedResource(tt.user, tt.ownerID))
		})
	}
}

func TestParseRole(t *testing.T) {
	for _, role := range []Role{RoleMember, RolePastor, RoleAdmin} {
		got, err := ParseRole(string(role))
		require.NoError(t, err)
		assert.Equal(t, role, got)
	}

	_, err := ParseRole("visitor")
	assert.ErrorIs(t, err, ErrUnknownRole)
}
