package middleware

// identity.go holds the context keys shared by the auth middleware and the
// handlers behind it.

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/service"
)

const (
	claimsKey   = "claims"
	rawTokenKey = "raw_token"
)

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	raw := strings.TrimSpace(auth[len(prefix):])
	return raw, raw != ""
}

// ClaimsFrom returns the claims stored by JWTAuth.
func ClaimsFrom(c echo.Context) (service.Claims, bool) {
	cl, ok := c.Get(claimsKey).(service.Claims)
	return cl, ok
}

// RawToken returns the bearer token verified by JWTAuth.
func RawToken(c echo.Context) string {
	s, _ := c.Get(rawTokenKey).(string)
	return s
}

// userID returns the authenticated subject, or "anon".
func userID(c echo.Context) string {
	if cl, ok := ClaimsFrom(c); ok {
		return cl.Subject.String()
	}
	return "anon"
}
