package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/service"
)

// AuthHandler serves registration, login and the token lifecycle.
type AuthHandler struct {
	Auth *service.AuthService
	Log  *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{Auth: auth, Log: log}
}

// Register creates an account. Tokens are obtained through Login.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindValid(c, &req); err != nil {
		return invalid(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Auth.Register(ctx, service.NewUser{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toUser(u))
}

// Login verifies credentials and returns a fresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindValid(c, &req); err != nil {
		return invalid(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Auth.Login(ctx, req.Email, req.Password, clientInfo(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toAuth(s))
}

// Refresh expects the refresh token as the bearer credential and answers
// with a new access token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	tok, _, err := h.Auth.Refresh(ctx, middleware.RawToken(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access": tokenPart{Token: tok.Raw, Expires: tok.ExpiresAt},
	})
}

// Logout revokes the bearer access token and the refresh token issued
// with it.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, middleware.RawToken(c)); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// SupervisedLogin opens a session as another user on behalf of a
// superuser.
func (h *AuthHandler) SupervisedLogin(c echo.Context) error {
	target, ok := paramUUID(c, "user_id")
	if !ok {
		return badParam(c, "user_id")
	}
	caller, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": service.MsgInvalidToken})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Auth.SupervisedLogin(ctx, caller, target, clientInfo(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toAuth(s))
}
