package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pdrinv/inventory-api/internal/model"
	"github.com/pdrinv/inventory-api/internal/queue"
	"github.com/pdrinv/inventory-api/internal/repository"
	queue_publisher "github.com/pdrinv/inventory-api/internal/service"
)

// SessionHandler covers the session lifecycle and the session-scoped
// projections.
type SessionHandler struct {
	Sessions *repository.SessionRepo
	Counts   *repository.CountRepo
}

func NewSessionHandler(s *repository.SessionRepo, counts *repository.CountRepo) *SessionHandler {
	return &SessionHandler{Sessions: s, Counts: counts}
}

type createSessionReq struct {
	Name  string  `json:"nom_session" validate:"required,max=255"`
	Depot string  `json:"depot" validate:"required,max=64"`
	Notes *string `json:"notes"`
}

type updateSessionReq struct {
	Name  *string `json:"nom_session"`
	Depot *string `json:"depot"`
	Notes *string `json:"notes"`
}

type setStatusReq struct {
	Status string `json:"status" validate:"required"`
}

// Create opens a new counting session.  Names are unique across all
// sessions; a clash reports 409.
func (h *SessionHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createSessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Sessions.Create(ctx, strings.TrimSpace(req.Name), strings.TrimSpace(req.Depot), p.UserID, req.Notes)
	if err != nil {
		return repoError(c, err, "session not found")
	}
	return c.JSON(http.StatusCreated, s)
}

// List returns sessions, newest first, optionally filtered by status and
// depot.
func (h *SessionHandler) List(c echo.Context) error {
	status := c.QueryParam("status")
	if status != "" && !model.ValidStatus(status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Sessions.List(ctx, status, c.QueryParam("depot"), queryInt(c, "offset", 0), queryInt(c, "limit", 50))
	if err != nil {
		return repoError(c, err, "session not found")
	}
	return c.JSON(http.StatusOK, items)
}

// Get returns one session.
func (h *SessionHandler) Get(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		return repoError(c, err, "session not found")
	}
	return c.JSON(http.StatusOK, s)
}

// GetWithCounts returns a session together with its full ledger, joined
// with article detail.
func (h *SessionHandler) GetWithCounts(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		return repoError(c, err, "session not found")
	}
	counts, err := h.Counts.ListBySession(ctx, id)
	if err != nil {
		return repoError(c, err, "session not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"session": s, "counts": counts})
}

// Statistics returns the session activity summary: totals, per round and
// per counter.
func (h *SessionHandler) Statistics(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Sessions.GetByID(ctx, id); err != nil {
		return repoError(c, err, "session not found")
	}
	stats, err := h.Counts.StatsBySession(ctx, id)
	if err != nil {
		return repoError(c, err, "session not found")
	}
	return c.JSON(http.StatusOK, stats)
}

// SetStatus drives the lifecycle.  Transitions are forward-only; leaving
// open stamps finished_at exactly once.  A successful change publishes a
// session.status event.
func (h *SessionHandler) SetStatus(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req setStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if !model.ValidStatus(req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	before, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		return repoError(c, err, "session not found")
	}
	s, err := h.Sessions.SetStatus(ctx, id, req.Status)
	if err != nil {
		return repoError(c, err, "session not found")
	}

	if before.Status != s.Status {
		ev := queue.SessionStatusEvent{
			EventID:     uuid.NewString(),
			SessionID:   s.ID,
			SessionName: s.Name,
			OldStatus:   before.Status,
			NewStatus:   s.Status,
			ChangedBy:   p.UserID,
			ChangedAt:   time.Now().UTC().Format(time.RFC3339),
		}
		go func() {
			pctx, pcancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer pcancel()
			_ = queue_publisher.PublishSessionStatus(pctx, ev)
		}()
	}
	return c.JSON(http.StatusOK, s)
}

// Update edits session metadata without touching the lifecycle.
func (h *SessionHandler) Update(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req updateSessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Sessions.UpdateMeta(ctx, id, req.Name, req.Depot, req.Notes)
	if err != nil {
		return repoError(c, err, "session not found")
	}
	return c.JSON(http.StatusOK, s)
}

// Delete removes a session and, through cascades, its counts, history and
// results.
func (h *SessionHandler) Delete(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Sessions.Delete(ctx, id); err != nil {
		return repoError(c, err, "session not found")
	}
	return c.NoContent(http.StatusNoContent)
}
