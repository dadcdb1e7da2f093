package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/service"
)

// AccountHandler serves the endpoints a user calls about themselves.
type AccountHandler struct {
	Auth  *service.AuthService
	Users *service.UserService
	Log   *slog.Logger
}

func NewAccountHandler(auth *service.AuthService, users *service.UserService, log *slog.Logger) *AccountHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AccountHandler{Auth: auth, Users: users, Log: log}
}

func (h *AccountHandler) Me(c echo.Context) error {
	cl, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": service.MsgInvalidToken})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Auth.Me(ctx, cl.Subject)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toUser(u))
}

// Update changes the caller's email, password or names. Omitted fields
// are kept.
func (h *AccountHandler) Update(c echo.Context) error {
	cl, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": service.MsgInvalidToken})
	}
	var req profileReq
	if err := bindValid(c, &req); err != nil {
		return invalid(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Update(ctx, cl.Subject, req.update())
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toUser(u))
}

// History lists the caller's logins, newest first.
func (h *AccountHandler) History(c echo.Context) error {
	cl, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": service.MsgInvalidToken})
	}
	q, err := bindPage(c)
	if err != nil {
		return invalid(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Auth.History(ctx, cl.Subject, q.Page, q.PageSize)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toPage(p, func(e model.LoginHistory) historyPart {
		return historyPart{ID: e.ID.String(), LoggedAt: e.LoggedAt, IPAddress: e.IPAddress, UserAgent: e.UserAgent}
	}))
}

// bindPage reads page, page_size and email from the query string.
func bindPage(c echo.Context) (pageQuery, error) {
	var q pageQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return q, err
	}
	q.defaults()
	return q, q.Validate()
}
