package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/pdrinv/inventory-api/internal/auth"
)

// JWTAuth validates a Bearer access token and stores the caller's identity
// in the request context: "user_id" (uint64), "username" and "role"
// (strings), plus the resolved auth.Principal under "principal".  Protected
// routes must be wrapped by this middleware; role gates and handlers read
// the principal back via CurrentPrincipal.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			sub, ok := claims["sub"].(float64)
			if !ok || sub <= 0 {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			username, _ := claims["username"].(string)
			role, _ := claims["role"].(string)

			kind, round := auth.ParseRole(role)
			p := auth.Principal{
				UserID:   uint64(sub),
				Username: username,
				Kind:     kind,
				Round:    round,
			}
			c.Set("user_id", p.UserID)
			c.Set("username", username)
			c.Set("role", role)
			c.Set("principal", p)
			return next(c)
		}
	}
}
