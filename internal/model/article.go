package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Article is a catalog entry mirrored from the external reference system.
// The counting core treats it as read-only except for the location field,
// which may be updated as a side effect of a count submission when the
// counter finds the article somewhere else.
//
// Fields:
//
//	ID               – primary key identifier.
//	Numero           – unique article number (reference-system key).
//	Description      – human description.
//	SupplierCatalog  – supplier catalog reference.
//	Warehouse        – warehouse code.
//	Location         – bin/location code, mutable during counting.
//	StockQuantity    – baseline on-hand quantity from the reference system.
//	CreatedAt        – creation timestamp.
//	UpdatedAt        – last update timestamp.
type Article struct {
	ID              uint64          `json:"id"`                    // articles.id
	Numero          string          `json:"numero_article"`        // articles.numero_article
	Description     *string         `json:"description_article"`   // articles.description_article (nullable)
	SupplierCatalog *string         `json:"catalogue_fournisseur"` // articles.catalogue_fournisseur (nullable)
	Warehouse       *string         `json:"code_entrepot"`         // articles.code_entrepot (nullable)
	Location        *string         `json:"code_emplacement"`      // articles.code_emplacement (nullable)
	StockQuantity   decimal.Decimal `json:"quantite_en_stock"`     // articles.quantite_en_stock
	CreatedAt       time.Time       `json:"created_at"`            // articles.created_at
	UpdatedAt       time.Time       `json:"updated_at"`            // articles.updated_at
}
