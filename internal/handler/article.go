package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/pdrinv/inventory-api/internal/model"
	"github.com/pdrinv/inventory-api/internal/repository"
)

// ArticleHandler covers the catalog endpoints.  Reads are public inside
// the depot network; writes are admin-only.
type ArticleHandler struct {
	Articles *repository.ArticleRepo
}

func NewArticleHandler(a *repository.ArticleRepo) *ArticleHandler {
	return &ArticleHandler{Articles: a}
}

type createArticleReq struct {
	Numero          string  `json:"numero_article" validate:"required,max=128"`
	Description     *string `json:"description_article"`
	SupplierCatalog *string `json:"catalogue_fournisseur"`
	Warehouse       *string `json:"code_entrepot"`
	Location        *string `json:"code_emplacement"`
	StockQuantity   *string `json:"quantite_en_stock"`
}

type updateArticleReq struct {
	Description     *string `json:"description_article"`
	SupplierCatalog *string `json:"catalogue_fournisseur"`
	Warehouse       *string `json:"code_entrepot"`
	Location        *string `json:"code_emplacement"`
	StockQuantity   *string `json:"quantite_en_stock"`
}

// List returns a page of the catalog with optional warehouse, location and
// stock filters.
func (h *ArticleHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	f := repository.ArticleFilter{
		Warehouse: c.QueryParam("code_entrepot"),
		Location:  c.QueryParam("code_emplacement"),
		HasStock:  queryBoolPtr(c, "has_stock"),
	}
	items, total, err := h.Articles.List(ctx, f, queryInt(c, "offset", 0), queryInt(c, "limit", 100))
	if err != nil {
		return repoError(c, err, "article not found")
	}
	return c.JSON(http.StatusOK, pagedResponse{Items: items, Total: total})
}

// Search matches a term against number, description, supplier catalog and
// location.
func (h *ArticleHandler) Search(c echo.Context) error {
	term := strings.TrimSpace(c.QueryParam("q"))
	if term == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "q required"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Articles.Search(ctx, term, queryInt(c, "offset", 0), queryInt(c, "limit", 50))
	if err != nil {
		return repoError(c, err, "article not found")
	}
	return c.JSON(http.StatusOK, items)
}

// Get returns one article by id.
func (h *ArticleHandler) Get(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Articles.GetByID(ctx, id)
	if err != nil {
		return repoError(c, err, "article not found")
	}
	return c.JSON(http.StatusOK, a)
}

// GetByNumero returns one article by its unique number.  Scanners identify
// articles by number, not id, so counting clients hit this route.
func (h *ArticleHandler) GetByNumero(c echo.Context) error {
	numero := strings.TrimSpace(c.Param("numero"))
	if numero == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "numero required"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Articles.GetByNumero(ctx, numero)
	if err != nil {
		return repoError(c, err, "article not found")
	}
	return c.JSON(http.StatusOK, a)
}

// Create adds a catalog entry by hand; the bulk path is the importer.
func (h *ArticleHandler) Create(c echo.Context) error {
	var req createArticleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	stock := decimal.Zero
	if req.StockQuantity != nil {
		var err error
		stock, err = decimal.NewFromString(*req.StockQuantity)
		if err != nil || stock.IsNegative() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid quantite_en_stock"})
		}
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Articles.Create(ctx, &model.Article{
		Numero:          strings.TrimSpace(req.Numero),
		Description:     req.Description,
		SupplierCatalog: req.SupplierCatalog,
		Warehouse:       req.Warehouse,
		Location:        req.Location,
		StockQuantity:   stock,
	})
	if err != nil {
		return repoError(c, err, "article not found")
	}
	return c.JSON(http.StatusCreated, a)
}

// Update modifies catalog fields; nil fields stay untouched.
func (h *ArticleHandler) Update(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req updateArticleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	var stock *decimal.Decimal
	if req.StockQuantity != nil {
		d, err := decimal.NewFromString(*req.StockQuantity)
		if err != nil || d.IsNegative() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid quantite_en_stock"})
		}
		stock = &d
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Articles.Update(ctx, id, req.Description, req.SupplierCatalog, req.Warehouse, req.Location, stock)
	if err != nil {
		return repoError(c, err, "article not found")
	}
	return c.JSON(http.StatusOK, a)
}

// Delete removes an uncounted article.  Articles referenced by the ledger
// report a conflict instead.
func (h *ArticleHandler) Delete(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Articles.Delete(ctx, id); err != nil {
		return repoError(c, err, "article not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteByNumero is Delete keyed by article number, for callers that never
// see catalog ids.
func (h *ArticleHandler) DeleteByNumero(c echo.Context) error {
	numero := strings.TrimSpace(c.Param("numero"))
	if numero == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "numero required"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Articles.DeleteByNumero(ctx, numero); err != nil {
		return repoError(c, err, "article not found")
	}
	return c.NoContent(http.StatusNoContent)
}
