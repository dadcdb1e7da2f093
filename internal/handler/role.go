package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/service"
)

// RoleHandler exposes role management to superusers. Business rejections,
// unknown ids included, are answered with 400.
type RoleHandler struct {
	Roles *service.RoleService
	Log   *slog.Logger
}

func NewRoleHandler(roles *service.RoleService, log *slog.Logger) *RoleHandler {
	if log == nil {
		log = slog.Default()
	}
	return &RoleHandler{Roles: roles, Log: log}
}

func (h *RoleHandler) Create(c echo.Context) error {
	var req roleReq
	if err := bindValid(c, &req); err != nil {
		return invalid(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	r, err := h.Roles.CreateRole(ctx, req.Title)
	if err != nil {
		return failRole(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toRole(r))
}

func (h *RoleHandler) Delete(c echo.Context) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badParam(c, "id")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Roles.RemoveRole(ctx, id); err != nil {
		return failRole(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "role deleted"})
}

func (h *RoleHandler) Update(c echo.Context) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return badParam(c, "id")
	}
	var req roleReq
	if err := bindValid(c, &req); err != nil {
		return invalid(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	r, err := h.Roles.ModifyRole(ctx, id, req.Title)
	if err != nil {
		return failRole(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toRole(r))
}

func (h *RoleHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	roles, err := h.Roles.GetAllRoles(ctx)
	if err != nil {
		return failRole(c, h.Log, err)
	}
	out := make([]rolePart, 0, len(roles))
	for _, r := range roles {
		out = append(out, toRole(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

func (h *RoleHandler) Assign(c echo.Context) error {
	roleID, ok := paramUUID(c, "role_id")
	if !ok {
		return badParam(c, "role_id")
	}
	userID, ok := paramUUID(c, "user_id")
	if !ok {
		return badParam(c, "user_id")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Roles.AssignRole(ctx, roleID, userID); err != nil {
		return failRole(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "role assigned"})
}

func (h *RoleHandler) Revoke(c echo.Context) error {
	userID, ok := paramUUID(c, "user_id")
	if !ok {
		return badParam(c, "user_id")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Roles.RevokeRole(ctx, userID); err != nil {
		return failRole(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "role revoked"})
}
