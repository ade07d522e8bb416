package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// History actions.  One entry is appended per mutating ledger operation, in
// commit order.  Entries are never updated or deleted.
const (
	HistoryCreated        = "created"
	HistoryCorrected      = "corrected"
	HistoryUpdatedByDelta = "updated_by_delta"
	HistoryDeleted        = "deleted"
)

// HistoryEntry is one immutable audit record of a ledger mutation.  The
// session/article/round/counter/quantity values are denormalized at the time
// of the action so the trail stays meaningful even after the logical count
// is deleted.
type HistoryEntry struct {
	ID               uint64           `json:"id"`                 // counting_history.id
	SessionID        uint64           `json:"session_id"`         // counting_history.session_id
	ArticleID        uint64           `json:"article_id"`         // counting_history.article_id
	Round            int              `json:"round"`              // counting_history.round
	Quantity         decimal.Decimal  `json:"quantity_counted"`   // counting_history.quantity_counted
	CountedByUserID  uint64           `json:"counted_by_user_id"` // counting_history.counted_by_user_id
	CountedAt        time.Time        `json:"counted_at"`         // counting_history.counted_at
	Action           string           `json:"action"`             // counting_history.action
	PreviousQuantity *decimal.Decimal `json:"previous_quantity"`  // counting_history.previous_quantity (nullable)
	CountID          *uint64          `json:"count_id"`           // counting_history.count_id (nullable)
	CorrectionReason *string          `json:"correction_reason"`  // counting_history.correction_reason (nullable)
	Notes            *string          `json:"notes"`              // counting_history.notes (nullable)
	CreatedAt        time.Time        `json:"created_at"`         // counting_history.created_at
}

// HistoryDetail joins a HistoryEntry with article, user and session names
// for display.
type HistoryDetail struct {
	HistoryEntry
	ArticleNumero      string  `json:"article_numero"`
	ArticleDescription *string `json:"article_description"`
	Username           string  `json:"user_username"`
	UserFullName       *string `json:"user_full_name"`
	SessionName        string  `json:"session_name"`
}
