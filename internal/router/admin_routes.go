package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/handler"
	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/utils"
)

// RegisterAdmin registers the superuser-only endpoints: roles, users and
// supervised login.
func RegisterAdmin(e *echo.Echo, a *handler.AuthHandler, r *handler.RoleHandler, u *handler.UsersHandler, v middleware.TokenVerifier) {
	guard := []echo.MiddlewareFunc{
		middleware.JWTAuth(v, utils.AccessTokenType, a.Log),
		middleware.RequireRole(model.RoleSuperuser),
	}

	roles := e.Group("/role", guard...)
	roles.POST("/create", r.Create)
	roles.DELETE("/delete/:id", r.Delete)
	roles.POST("/update/:id", r.Update)
	roles.GET("/list", r.List)
	roles.POST("/:role_id/assign/:user_id", r.Assign)
	roles.POST("/revoke/:user_id", r.Revoke)

	users := e.Group("/users", guard...)
	users.GET("", u.List)
	users.POST("", u.Create)
	users.GET("/:id", u.Get)
	users.PATCH("/:id", u.Update)
	users.DELETE("/:id", u.Delete)

	e.POST("/supervised_login/:user_id", a.SupervisedLogin, guard...)
}
