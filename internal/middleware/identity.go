package middleware

// identity.go holds the context accessors shared by middleware and
// handlers.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/pdrinv/inventory-api/internal/auth"
)

// CurrentPrincipal returns the resolved caller identity stored by JWTAuth.
// The boolean is false on unauthenticated routes.
func CurrentPrincipal(c echo.Context) (auth.Principal, bool) {
	p, ok := c.Get("principal").(auth.Principal)
	return p, ok
}

// currentUserID renders the authenticated user id for rate-limit keys, or
// "anon" when the route is public.
func currentUserID(c echo.Context) string {
	if p, ok := CurrentPrincipal(c); ok {
		return strconv.FormatUint(p.UserID, 10)
	}
	return "anon"
}
