package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/pdrinv/inventory-api/internal/repository"
	"github.com/pdrinv/inventory-api/internal/stats"
)

// ResultHandler covers reconciliation and the variance reports.
type ResultHandler struct {
	Results  *repository.ResultRepo
	Sessions *repository.SessionRepo
	AddLog   *repository.ArticleAddLogRepo
}

func NewResultHandler(r *repository.ResultRepo, s *repository.SessionRepo, addLog *repository.ArticleAddLogRepo) *ResultHandler {
	return &ResultHandler{Results: r, Sessions: s, AddLog: addLog}
}

type reconcileReq struct {
	SessionID uint64 `json:"session_id" validate:"required"`
	ArticleID uint64 `json:"article_id" validate:"required"`
	Final     string `json:"quantite_finale" validate:"required"`
	Adjusted  bool   `json:"ajuste"`
}

type updateResultReq struct {
	Final    *string `json:"quantite_finale"`
	Adjusted *bool   `json:"ajuste"`
}

type addLogReq struct {
	Numero      string  `json:"numero_article" validate:"required,max=128"`
	Description *string `json:"description_article"`
}

// Reconcile writes the final quantity for one article of a closed session.
// The baseline is frozen from the catalog at this moment and the variance
// computed server side; a second reconcile for the same pair reports 409.
func (h *ResultHandler) Reconcile(c echo.Context) error {
	var req reconcileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	final, err := decimal.NewFromString(req.Final)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid quantite_finale"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Results.Reconcile(ctx, req.SessionID, req.ArticleID, final, req.Adjusted)
	if err != nil {
		return repoError(c, err, "session or article not found")
	}
	return c.JSON(http.StatusCreated, res)
}

// List returns results filtered by session, article, variance presence and
// adjustment flag, largest absolute variance first.
func (h *ResultHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	f := repository.ResultFilter{
		SessionID:   queryUint(c, "session_id"),
		ArticleID:   queryUint(c, "article_id"),
		HasVariance: queryBoolPtr(c, "has_variance"),
		Adjusted:    queryBoolPtr(c, "ajuste"),
	}
	items, total, err := h.Results.List(ctx, f, queryInt(c, "offset", 0), queryInt(c, "limit", 100))
	if err != nil {
		return repoError(c, err, "result not found")
	}
	return c.JSON(http.StatusOK, pagedResponse{Items: items, Total: total})
}

// Get returns one result.
func (h *ResultHandler) Get(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Results.GetByID(ctx, id)
	if err != nil {
		return repoError(c, err, "result not found")
	}
	return c.JSON(http.StatusOK, res)
}

// ListWithDetails returns a session's results joined with article detail
// and current reference stock.
func (h *ResultHandler) ListWithDetails(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Sessions.GetByID(ctx, id); err != nil {
		return repoError(c, err, "session not found")
	}
	items, err := h.Results.ListWithDetails(ctx, id)
	if err != nil {
		return repoError(c, err, "session not found")
	}
	return c.JSON(http.StatusOK, items)
}

// VarianceSummary reports drift totals and the worst articles for a
// session.  A session with no reconciled results reports 404 rather than
// an all-zero summary.
func (h *ResultHandler) VarianceSummary(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Sessions.GetByID(ctx, id); err != nil {
		return repoError(c, err, "session not found")
	}
	results, err := h.Results.ListBySession(ctx, id)
	if err != nil {
		return repoError(c, err, "session not found")
	}
	if len(results) == 0 {
		return repoError(c, repository.ErrNotFound, "no results for this session")
	}
	return c.JSON(http.StatusOK, stats.SummarizeVariance(results))
}

// ResultsSummary reports signed variance totals and the adjustment rate
// for a session.
func (h *ResultHandler) ResultsSummary(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Sessions.GetByID(ctx, id); err != nil {
		return repoError(c, err, "session not found")
	}
	results, err := h.Results.ListBySession(ctx, id)
	if err != nil {
		return repoError(c, err, "session not found")
	}
	return c.JSON(http.StatusOK, stats.SummarizeResults(results))
}

// Update edits a result's final quantity or adjusted flag.  The frozen
// baseline never moves.
func (h *ResultHandler) Update(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req updateResultReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	var final *decimal.Decimal
	if req.Final != nil {
		d, err := decimal.NewFromString(*req.Final)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid quantite_finale"})
		}
		final = &d
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Results.Update(ctx, id, final, req.Adjusted)
	if err != nil {
		return repoError(c, err, "result not found")
	}
	return c.JSON(http.StatusOK, res)
}

// Delete removes a result so the pair can be reconciled again.
func (h *ResultHandler) Delete(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Results.Delete(ctx, id); err != nil {
		return repoError(c, err, "result not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// ReportArticle logs an article seen on the floor that the catalog does
// not know yet.
func (h *ResultHandler) ReportArticle(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req addLogReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	entry, err := h.AddLog.Append(ctx, id, strings.TrimSpace(req.Numero), req.Description, p.UserID)
	if err != nil {
		return repoError(c, err, "session not found")
	}
	return c.JSON(http.StatusCreated, entry)
}

// ArticleAddLog lists the articles reported during a session.
func (h *ResultHandler) ArticleAddLog(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Sessions.GetByID(ctx, id); err != nil {
		return repoError(c, err, "session not found")
	}
	items, err := h.AddLog.ListBySession(ctx, id)
	if err != nil {
		return repoError(c, err, "session not found")
	}
	return c.JSON(http.StatusOK, items)
}
