package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pdrinv/inventory-api/internal/auth"
)

// RequirePrivileged aborts with 403 unless the caller holds the
// administrator role.  It assumes JWTAuth ran earlier in the chain.
func RequirePrivileged() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := CurrentPrincipal(c)
			if !ok || !p.Privileged() {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// RequireCounting aborts with 403 unless the caller may submit counts:
// administrators and round-bound counters pass, read-only roles do not.
// The exact round check happens later against the submitted payload.
func RequireCounting() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := CurrentPrincipal(c)
			if !ok || p.Kind == auth.RoleReadOnly {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
