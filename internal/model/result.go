package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Result is the reconciliation output for one article in one session.  The
// baseline quantity is copied from the article row at reconciliation time
// and frozen; it is not re-derived even if the reference value changes
// later.  Variance = final - baseline.
type Result struct {
	ID        uint64          `json:"id"`                 // inventory_results.id
	SessionID uint64          `json:"session_id"`         // inventory_results.session_id
	ArticleID uint64          `json:"article_id"`         // inventory_results.article_id
	Baseline  decimal.Decimal `json:"quantite_initiale"`  // inventory_results.quantite_initiale
	Final     decimal.Decimal `json:"quantite_finale"`    // inventory_results.quantite_finale
	Variance  decimal.Decimal `json:"ecart_final"`        // inventory_results.ecart_final
	Adjusted  bool            `json:"ajuste"`             // inventory_results.ajuste
	CreatedAt time.Time       `json:"created_at"`         // inventory_results.created_at
	UpdatedAt time.Time       `json:"updated_at"`         // inventory_results.updated_at
}

// ResultWithArticle decorates a Result with catalog detail and the current
// reference stock for the session result views.
type ResultWithArticle struct {
	Result
	ArticleNumero      string           `json:"article_numero"`
	ArticleDescription *string          `json:"article_description"`
	ArticleLocation    *string          `json:"article_location"`
	ReferenceStock     *decimal.Decimal `json:"sap_stock,omitempty"`
}

// ArticleAddLogEntry records an article reported during counting that may
// not yet exist in the catalog.  Purely informational, append-only.
type ArticleAddLogEntry struct {
	ID              uint64    `json:"id"`                  // article_add_log.id
	SessionID       uint64    `json:"session_id"`          // article_add_log.session_id
	Numero          string    `json:"numero_article"`      // article_add_log.numero_article
	Description     *string   `json:"description_article"` // article_add_log.description_article (nullable)
	CreatedByUserID uint64    `json:"created_by_user_id"`  // article_add_log.created_by_user_id
	CreatedAt       time.Time `json:"created_at"`          // article_add_log.created_at
}
