package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/model"
)

// RequireRole lets the request through only when the verified token
// carries one of roles. It must run after JWTAuth.
func RequireRole(roles ...model.RoleName) echo.MiddlewareFunc {
	allowed := make(map[model.RoleName]bool, len(roles))
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		allowed[r] = true
		names = append(names, r.String())
	}
	msg := fmt.Sprintf("Access forbidden: %s required", strings.Join(names, " or "))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cl, ok := ClaimsFrom(c)
			if !ok || !cl.Role.Valid() || !allowed[cl.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": msg})
			}
			return next(c)
		}
	}
}
