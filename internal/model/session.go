package model

import "time"

// Session status values.  Transitions are forward-only: a session starts
// open, then moves to closed or directly to finalized.  Nothing ever
// returns to open.
const (
	SessionOpen      = "open"
	SessionClosed    = "closed"
	SessionFinalized = "finalized"
)

// Session represents one bounded inventory-counting campaign scoped to a
// depot.  Counters submit counts against it while it is open; closing it
// stamps finished_at exactly once and freezes the ledger for
// reconciliation.
//
// Fields:
//
//	ID              – primary key identifier.
//	Name            – unique, human-assigned session name.
//	Depot           – depot/location scope of the campaign.
//	Status          – open, closed or finalized.
//	StartedAt       – when counting began.
//	FinishedAt      – set on the first transition out of open, never reset.
//	CreatedByUserID – administrator who created the session.
//	Notes           – free-text notes.
//	CreatedAt       – creation timestamp.
//	UpdatedAt       – last update timestamp.
type Session struct {
	ID              uint64     `json:"id"`                 // inventory_sessions.id
	Name            string     `json:"nom_session"`        // inventory_sessions.nom_session
	Depot           string     `json:"depot"`              // inventory_sessions.depot
	Status          string     `json:"status"`             // inventory_sessions.status
	StartedAt       time.Time  `json:"started_at"`         // inventory_sessions.started_at
	FinishedAt      *time.Time `json:"finished_at"`        // inventory_sessions.finished_at (nullable)
	CreatedByUserID *uint64    `json:"created_by_user_id"` // inventory_sessions.created_by_user_id (nullable)
	Notes           *string    `json:"notes"`              // inventory_sessions.notes (nullable)
	CreatedAt       time.Time  `json:"created_at"`         // inventory_sessions.created_at
	UpdatedAt       time.Time  `json:"updated_at"`         // inventory_sessions.updated_at
}

// ValidStatus reports whether s is one of the three legal session states.
func ValidStatus(s string) bool {
	return s == SessionOpen || s == SessionClosed || s == SessionFinalized
}

// statusRank orders the session states for the forward-only rule.
func statusRank(s string) int {
	switch s {
	case SessionOpen:
		return 0
	case SessionClosed:
		return 1
	case SessionFinalized:
		return 2
	}
	return -1
}

// CanTransition reports whether a session may move from one status to
// another.  Re-asserting the current status is allowed (idempotent close);
// moving backwards is not.
func CanTransition(from, to string) bool {
	fr, tr := statusRank(from), statusRank(to)
	if fr < 0 || tr < 0 {
		return false
	}
	return tr >= fr
}
