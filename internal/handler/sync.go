package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pdrinv/inventory-api/internal/importer"
)

// SyncHandler triggers a catalog import on demand.
type SyncHandler struct {
	Importer *importer.Importer
}

func NewSyncHandler(im *importer.Importer) *SyncHandler {
	return &SyncHandler{Importer: im}
}

// SyncArticles runs one import pass against the reference system and
// reports what it did.  503 when no source is configured.
func (h *SyncHandler) SyncArticles(c echo.Context) error {
	if h.Importer == nil || !h.Importer.Enabled() {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "no article source configured"})
	}
	stats, err := h.Importer.SyncOnce(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "sync failed", "detail": err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}
