package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// AdminGuard admits only callers whose token carries the admin role.
// Runs after JWTMiddleware has populated the role on the context.
func AdminGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if role, _ := c.Get("role").(string); role != "admin" {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "admin access only"})
		}
		return next(c)
	}
}
