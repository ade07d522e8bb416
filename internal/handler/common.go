package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/pdrinv/inventory-api/internal/auth"
	"github.com/pdrinv/inventory-api/internal/middleware"
	"github.com/pdrinv/inventory-api/internal/repository"
)

// dbTimeout bounds every handler-issued database call.
const dbTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// principal returns the authenticated caller.  Routes behind JWTAuth always
// have one; the error path covers misconfigured route tables.
func principal(c echo.Context) (auth.Principal, error) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return auth.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	return p, nil
}

func paramID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func queryInt(c echo.Context, name string, def int) int {
	if v := c.QueryParam(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func queryUint(c echo.Context, name string) uint64 {
	if v := c.QueryParam(name); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func queryBoolPtr(c echo.Context, name string) *bool {
	v := c.QueryParam(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

// repoError maps the repository sentinels onto HTTP responses.  Unknown
// errors are logged and reported as a plain 500 so internals never leak to
// clients.
func repoError(c echo.Context, err error, notFoundMsg string) error {
	var ve *repository.ValidationError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": notFoundMsg})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	case errors.Is(err, repository.ErrInvalidState):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "invalid state"})
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Error(), "field": ve.Field})
	default:
		logrus.WithError(err).WithField("path", c.Path()).Error("request failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// pagedResponse is the envelope for list endpoints that report a total.
type pagedResponse struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
}
