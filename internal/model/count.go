package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Count is the current, versioned value for one (session, article, round,
// counter) tuple.  A second submission for the same tuple corrects this row
// in place and bumps Version; it never creates a second row.
//
// Fields:
//
//	ID              – primary key identifier.
//	SessionID       – owning session.
//	ArticleID       – counted article.
//	Round           – counting pass number, starting at 1.
//	Quantity        – counted quantity, never negative.
//	CountedByUserID – counter who submitted.
//	CountedAt       – timestamp of the last write.
//	IsNew           – article was not in the catalog at count time.
//	Notes           – optional free text.
//	Version         – starts at 1, incremented on every correction.
type Count struct {
	ID              uint64          `json:"id"`                 // inventory_counts.id
	SessionID       uint64          `json:"session_id"`         // inventory_counts.session_id
	ArticleID       uint64          `json:"article_id"`         // inventory_counts.article_id
	Round           int             `json:"round"`              // inventory_counts.round
	Quantity        decimal.Decimal `json:"quantity_counted"`   // inventory_counts.quantity_counted
	CountedByUserID uint64          `json:"counted_by_user_id"` // inventory_counts.counted_by_user_id
	CountedAt       time.Time       `json:"counted_at"`         // inventory_counts.counted_at
	IsNew           bool            `json:"is_new"`             // inventory_counts.is_new
	Notes           *string         `json:"notes"`              // inventory_counts.notes (nullable)
	Version         int             `json:"version"`            // inventory_counts.version
}

// CountWithArticle decorates a Count with catalog detail for the read
// endpoints that display counts next to the article they refer to.
type CountWithArticle struct {
	Count
	ArticleNumero      string  `json:"article_numero"`
	ArticleDescription *string `json:"article_description"`
	ArticleLocation    *string `json:"article_location"`
}

// LastCounted is one row of the "last article counted" projections: the
// most recent count of a user, joined with article and session detail.
type LastCounted struct {
	CountID            uint64          `json:"count_id"`
	ArticleID          uint64          `json:"article_id"`
	ArticleNumero      string          `json:"article_numero"`
	ArticleDescription *string         `json:"article_description"`
	ArticleLocation    *string         `json:"article_location"`
	Quantity           decimal.Decimal `json:"quantity_counted"`
	Round              int             `json:"round"`
	CountedAt          time.Time       `json:"counted_at"`
	UserID             uint64          `json:"user_id"`
	Username           string          `json:"username"`
	SessionID          uint64          `json:"session_id"`
	SessionName        string          `json:"session_name"`
}
