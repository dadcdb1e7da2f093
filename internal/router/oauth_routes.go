package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/handler"
)

// RegisterOAuth registers the authorization-code flow of every provider
// known to the handler's service.
func RegisterOAuth(e *echo.Echo, o *handler.OAuthHandler) {
	g := e.Group("/oauth/:provider")
	g.GET("/login", o.Login)
	g.GET("/callback", o.Callback)
}
