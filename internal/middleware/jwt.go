package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"marketbay/internal/auth"
)

// JWTMiddleware extracts the bearer token, validates it and stores
// user_id and role on the request context.
func JWTMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization header"})
		}

		userID, role, err := auth.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
		}

		c.Set("user_id", userID)
		c.Set("role", role)
		return next(c)
	}
}
