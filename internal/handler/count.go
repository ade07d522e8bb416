package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/pdrinv/inventory-api/internal/queue"
	"github.com/pdrinv/inventory-api/internal/repository"
	queue_publisher "github.com/pdrinv/inventory-api/internal/service"
	"github.com/pdrinv/inventory-api/internal/stats"
)

// CountHandler covers the counting ledger endpoints.
type CountHandler struct {
	Counts   *repository.CountRepo
	Sessions *repository.SessionRepo
	Articles *repository.ArticleRepo
}

func NewCountHandler(counts *repository.CountRepo, sessions *repository.SessionRepo, articles *repository.ArticleRepo) *CountHandler {
	return &CountHandler{Counts: counts, Sessions: sessions, Articles: articles}
}

type submitCountReq struct {
	SessionID uint64  `json:"session_id" validate:"required"`
	ArticleID uint64  `json:"article_id" validate:"required"`
	Round     int     `json:"round" validate:"required,min=1"`
	Quantity  string  `json:"quantity_counted" validate:"required"`
	IsNew     bool    `json:"is_new"`
	Notes     *string `json:"notes"`
	Location  *string `json:"code_emplacement"`
}

type deltaReq struct {
	Delta string  `json:"quantity_change" validate:"required"`
	Notes *string `json:"notes"`
}

type correctReq struct {
	Quantity string  `json:"new_quantity" validate:"required"`
	Reason   string  `json:"correction_reason" validate:"required"`
	Notes    *string `json:"notes"`
}

// Submit records a count, or corrects the caller's earlier count for the
// same article and round.  The response reports which of the two happened.
// A committed write publishes a count.submitted event; broker trouble
// never fails the request.
func (h *CountHandler) Submit(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req submitCountReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid quantity_counted"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	count, corrected, err := h.Counts.Submit(ctx, repository.SubmitParams{
		Principal: p,
		SessionID: req.SessionID,
		ArticleID: req.ArticleID,
		Round:     req.Round,
		Quantity:  qty,
		IsNew:     req.IsNew,
		Notes:     req.Notes,
		Location:  req.Location,
	})
	if err != nil {
		return repoError(c, err, "session or article not found")
	}

	h.publishSubmitted(c, count.ID, corrected)

	status := http.StatusCreated
	if corrected {
		status = http.StatusOK
	}
	return c.JSON(status, echo.Map{"count": count, "corrected": corrected})
}

func (h *CountHandler) publishSubmitted(c echo.Context, countID uint64, corrected bool) {
	p, _ := principal(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	count, err := h.Counts.GetByID(ctx, countID)
	if err != nil {
		return
	}
	session, err := h.Sessions.GetByID(ctx, count.SessionID)
	if err != nil {
		return
	}
	article, err := h.Articles.GetByID(ctx, count.ArticleID)
	if err != nil {
		return
	}
	ev := queue.CountSubmittedEvent{
		EventID:       uuid.NewString(),
		CountID:       count.ID,
		SessionID:     session.ID,
		SessionName:   session.Name,
		ArticleID:     article.ID,
		ArticleNumero: article.Numero,
		Round:         count.Round,
		Quantity:      count.Quantity.String(),
		Version:       count.Version,
		Corrected:     corrected,
		UserID:        p.UserID,
		Username:      p.Username,
		CountedAt:     count.CountedAt.UTC().Format(time.RFC3339),
	}
	go func() {
		pctx, pcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pcancel()
		_ = queue_publisher.PublishCountSubmitted(pctx, ev)
	}()
}

// List returns counts with article detail, filtered and paged.
func (h *CountHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	f := repository.CountFilter{
		SessionID: queryUint(c, "session_id"),
		ArticleID: queryUint(c, "article_id"),
		Round:     queryInt(c, "round", 0),
		CountedBy: queryUint(c, "user_id"),
		Location:  c.QueryParam("code_emplacement"),
		Search:    c.QueryParam("q"),
	}
	items, total, err := h.Counts.List(ctx, f, queryInt(c, "offset", 0), queryInt(c, "limit", 100))
	if err != nil {
		return repoError(c, err, "count not found")
	}
	return c.JSON(http.StatusOK, pagedResponse{Items: items, Total: total})
}

// Get returns one count.
func (h *CountHandler) Get(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	count, err := h.Counts.GetByID(ctx, id)
	if err != nil {
		return repoError(c, err, "count not found")
	}
	return c.JSON(http.StatusOK, count)
}

// ApplyDelta adjusts a count by a signed quantity.  Only the counter who
// wrote it or an administrator may adjust.
func (h *CountHandler) ApplyDelta(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req deltaReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	delta, err := decimal.NewFromString(req.Delta)
	if err != nil || delta.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid quantity_change"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	count, err := h.Counts.ApplyDelta(ctx, id, delta, req.Notes, p.UserID, p.Privileged())
	if err != nil {
		return repoError(c, err, "count not found")
	}
	return c.JSON(http.StatusOK, count)
}

// Correct overwrites a count's quantity with an explicit reason.
func (h *CountHandler) Correct(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req correctReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid new_quantity"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	count, err := h.Counts.CorrectWithReason(ctx, id, qty, req.Reason, req.Notes, p.UserID, p.Privileged())
	if err != nil {
		return repoError(c, err, "count not found")
	}
	return c.JSON(http.StatusOK, count)
}

// Delete removes a count (admin gate in the router).  The audit trail
// keeps a final "deleted" entry.
func (h *CountHandler) Delete(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Counts.Delete(ctx, id); err != nil {
		return repoError(c, err, "count not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// LastForMe returns the caller's most recent counts across sessions.
func (h *CountHandler) LastForMe(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Counts.LastByUser(ctx, p.UserID, queryInt(c, "limit", 10))
	if err != nil {
		return repoError(c, err, "count not found")
	}
	return c.JSON(http.StatusOK, items)
}

// LastPerUser returns, for one session, each counter's most recent count.
func (h *CountHandler) LastPerUser(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Sessions.GetByID(ctx, id); err != nil {
		return repoError(c, err, "session not found")
	}
	rows, err := h.Counts.LastCountedRows(ctx, id)
	if err != nil {
		return repoError(c, err, "session not found")
	}
	return c.JSON(http.StatusOK, stats.LastPerUser(rows))
}
