package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	cases := []struct {
		role  string
		kind  RoleKind
		round int
	}{
		{"admin", RolePrivileged, 0},
		{"compteur_1", RoleRoundBound, 1},
		{"compteur_2", RoleRoundBound, 2},
		{"compteur_12", RoleRoundBound, 12},
		{"viewer", RoleReadOnly, 0},
		{"", RoleReadOnly, 0},
		{"compteur_", RoleReadOnly, 0},
		{"compteur_0", RoleReadOnly, 0},
		{"compteur_x", RoleReadOnly, 0},
		{"manager", RoleReadOnly, 0},
	}
	for _, tc := range cases {
		kind, round := ParseRole(tc.role)
		assert.Equal(t, tc.kind, kind, "role %q", tc.role)
		assert.Equal(t, tc.round, round, "role %q", tc.role)
	}
}

func TestCanSubmitRound(t *testing.T) {
	admin := Principal{UserID: 1, Kind: RolePrivileged}
	round2 := Principal{UserID: 2, Kind: RoleRoundBound, Round: 2}
	viewer := Principal{UserID: 3, Kind: RoleReadOnly}

	assert.True(t, admin.CanSubmitRound(1))
	assert.True(t, admin.CanSubmitRound(7))

	assert.False(t, round2.CanSubmitRound(1))
	assert.True(t, round2.CanSubmitRound(2))
	assert.False(t, round2.CanSubmitRound(3))

	assert.False(t, viewer.CanSubmitRound(1))
}

func TestCanMutateCount(t *testing.T) {
	admin := Principal{UserID: 1, Kind: RolePrivileged}
	owner := Principal{UserID: 5, Kind: RoleRoundBound, Round: 1}
	other := Principal{UserID: 6, Kind: RoleRoundBound, Round: 1}

	assert.True(t, admin.CanMutateCount(5))
	assert.True(t, owner.CanMutateCount(5))
	assert.False(t, other.CanMutateCount(5))
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole("admin"))
	assert.True(t, ValidRole("viewer"))
	assert.True(t, ValidRole("compteur_3"))
	assert.False(t, ValidRole("compteur_0"))
	assert.False(t, ValidRole("compteur_"))
	assert.False(t, ValidRole("root"))
}

func TestCounterRole(t *testing.T) {
	assert.Equal(t, "compteur_2", CounterRole(2))
	kind, round := ParseRole(CounterRole(4))
	assert.Equal(t, RoleRoundBound, kind)
	assert.Equal(t, 4, round)
}
