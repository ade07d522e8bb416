package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pdrinv/inventory-api/internal/model"
	"github.com/pdrinv/inventory-api/internal/repository"
)

// HistoryHandler exposes the read-only audit trail.
type HistoryHandler struct {
	History *repository.HistoryRepo
}

func NewHistoryHandler(h *repository.HistoryRepo) *HistoryHandler {
	return &HistoryHandler{History: h}
}

func historyFilter(c echo.Context) (repository.HistoryFilter, error) {
	f := repository.HistoryFilter{
		SessionID: queryUint(c, "session_id"),
		ArticleID: queryUint(c, "article_id"),
		Round:     queryInt(c, "round", 0),
		CountedBy: queryUint(c, "user_id"),
		Action:    c.QueryParam("action"),
		CountID:   queryUint(c, "count_id"),
	}
	switch f.Action {
	case "", model.HistoryCreated, model.HistoryCorrected, model.HistoryUpdatedByDelta, model.HistoryDeleted:
		return f, nil
	}
	return f, echo.NewHTTPError(http.StatusBadRequest, "invalid action")
}

// List returns audit entries, newest first.
func (h *HistoryHandler) List(c echo.Context) error {
	f, err := historyFilter(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, total, err := h.History.List(ctx, f, queryInt(c, "offset", 0), queryInt(c, "limit", 100))
	if err != nil {
		return repoError(c, err, "history not found")
	}
	return c.JSON(http.StatusOK, pagedResponse{Items: items, Total: total})
}

// ListDetailed is List with article, user and session names joined in.
func (h *HistoryHandler) ListDetailed(c echo.Context) error {
	f, err := historyFilter(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, total, err := h.History.ListDetailed(ctx, f, queryInt(c, "offset", 0), queryInt(c, "limit", 100))
	if err != nil {
		return repoError(c, err, "history not found")
	}
	return c.JSON(http.StatusOK, pagedResponse{Items: items, Total: total})
}
