// Package router wires handlers and middleware onto echo routes.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/handler"
	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/utils"
)

// RegisterRoutes registers the probes, which need no authentication.
func RegisterRoutes(e *echo.Echo, ready handler.Ready) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", ready.Handle)
}

// RegisterAuth registers the credential endpoints and the caller's own
// account. limit guards register and login.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, acct *handler.AccountHandler, v middleware.TokenVerifier, limit echo.MiddlewareFunc) {
	g := e.Group("/auth")
	g.POST("/register", a.Register, limit)
	g.POST("/login", a.Login, limit)
	g.POST("/refresh", a.Refresh, middleware.JWTAuth(v, utils.RefreshTokenType, a.Log))
	g.POST("/logout", a.Logout, middleware.JWTAuth(v, utils.AccessTokenType, a.Log))

	me := e.Group("/account", middleware.JWTAuth(v, utils.AccessTokenType, a.Log))
	me.GET("/me", acct.Me)
	me.PATCH("/update", acct.Update)
	me.GET("/history", acct.History)
}
