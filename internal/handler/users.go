package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/service"
)

// UsersHandler is the superuser API over all accounts.
type UsersHandler struct {
	Users *service.UserService
	Log   *slog.Logger
}

func NewUsersHandler(users *service.UserService, log *slog.Logger) *UsersHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UsersHandler{Users: users, Log: log}
}

func (h *UsersHandler) Get(c echo.Context) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badParam(c, "id")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Get(ctx, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toUser(u))
}

// List pages through users, optionally filtered by an exact email.
func (h *UsersHandler) List(c echo.Context) error {
	q, err := bindPage(c)
	if err != nil {
		return invalid(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Users.List(ctx, q.Email, q.Page, q.PageSize)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toPage(p, toUser))
}

func (h *UsersHandler) Create(c echo.Context) error {
	var req registerReq
	if err := bindValid(c, &req); err != nil {
		return invalid(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Create(ctx, service.NewUser{
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

func (h *UsersHandler) Update(c echo.Context) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	var req profileReq
	if err := bindValid(c, &req); err != nil {
		return invalid(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Update(ctx, id, req.update())
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toUser(u))
}

func (h *UsersHandler) Delete(c echo.Context) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badParam(c, "id")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
