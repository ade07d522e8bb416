// Package auth resolves the role string carried by a JWT into a typed
// principal.  The role encoding comes from the user administration side:
// "admin" is privileged, "compteur_<n>" is bound to counting round n and
// "viewer" is read-only.  Parsing happens once at the request boundary so
// handlers never re-split the role string.
package auth

import (
	"fmt"
	"strconv"
	"strings"
)

// Role kinds.
type RoleKind int

const (
	// RolePrivileged may administer sessions, results and users and may
	// submit counts for any round.
	RolePrivileged RoleKind = iota
	// RoleRoundBound may submit counts only for its bound round.
	RoleRoundBound
	// RoleReadOnly may read but never mutate.
	RoleReadOnly
)

// Role strings as stored on app_users.role.
const (
	RoleAdmin        = "admin"
	RoleViewer       = "viewer"
	counterPrefix    = "compteur_"
	RoleCounterRound = counterPrefix + "%d" // sprintf pattern for round-bound roles
)

// Principal is the resolved caller identity: who is acting and what their
// role allows.  Round is meaningful only when Kind is RoleRoundBound.
type Principal struct {
	UserID   uint64
	Username string
	Kind     RoleKind
	Round    int
}

// ParseRole maps a role string to its kind and, for round-bound counters,
// the round number.  Unknown roles and malformed counter roles degrade to
// read-only rather than failing open.
func ParseRole(role string) (RoleKind, int) {
	switch {
	case role == RoleAdmin:
		return RolePrivileged, 0
	case strings.HasPrefix(role, counterPrefix):
		n, err := strconv.Atoi(strings.TrimPrefix(role, counterPrefix))
		if err != nil || n < 1 {
			return RoleReadOnly, 0
		}
		return RoleRoundBound, n
	default:
		return RoleReadOnly, 0
	}
}

// CounterRole builds the role string for a counter bound to the given round.
func CounterRole(round int) string {
	return fmt.Sprintf(RoleCounterRound, round)
}

// ValidRole reports whether a role string is one the system accepts for a
// user account.
func ValidRole(role string) bool {
	if role == RoleAdmin || role == RoleViewer {
		return true
	}
	if strings.HasPrefix(role, counterPrefix) {
		n, err := strconv.Atoi(strings.TrimPrefix(role, counterPrefix))
		return err == nil && n >= 1
	}
	return false
}

// CanSubmitRound is the round assignment predicate: it reports whether the
// principal may submit a count for the requested round.  It has no side
// effects and must be checked before any ledger mutation.
func (p Principal) CanSubmitRound(round int) bool {
	switch p.Kind {
	case RolePrivileged:
		return true
	case RoleRoundBound:
		return round == p.Round
	default:
		return false
	}
}

// Privileged reports whether the principal holds the administrator role.
func (p Principal) Privileged() bool { return p.Kind == RolePrivileged }

// CanMutateCount reports whether the principal may correct or delta-adjust
// a count owned by ownerID: the original counter or an administrator.
func (p Principal) CanMutateCount(ownerID uint64) bool {
	return p.Privileged() || p.UserID == ownerID
}
