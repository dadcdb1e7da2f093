// Package middleware contains the echo middleware placed in front of the
// handlers: bearer token verification, role guards and rate limiting.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/service"
	"github.com/iliyamo/auth-service/internal/utils"
)

// TokenVerifier checks a raw token of the wanted type.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string, want utils.TokenType) (service.Claims, error)
}

// JWTAuth verifies the bearer token, including the denylist, and stores
// its claims for ClaimsFrom. Every authentication failure is answered with
// the same 401 body; a denylist outage is logged and answered with 503.
func JWTAuth(v TokenVerifier, want utils.TokenType, log *slog.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := BearerToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": service.MsgInvalidToken})
			}
			claims, err := v.Verify(c.Request().Context(), raw, want)
			if err != nil {
				if service.KindOf(err) == service.KindUnavailable {
					log.Error("token verification unavailable",
						slog.String("path", c.Path()),
						slog.String("ip", c.RealIP()),
						slog.Any("err", err))
					return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": service.MsgUnavailable})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": service.MsgInvalidToken})
			}
			c.Set(claimsKey, claims)
			c.Set(rawTokenKey, raw)
			return next(c)
		}
	}
}
