package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/service"
)

// requestTimeout bounds the store work done by one request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func statusOf(k service.Kind) int {
	switch k {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as {"error": message}. Infrastructure failures are
// logged with their cause and answered with a generic message.
func fail(c echo.Context, log *slog.Logger, err error) error {
	return writeError(c, log, statusOf(service.KindOf(err)), err)
}

// failRole maps role endpoint errors: every business rejection, including
// unknown ids, is a 400.
func failRole(c echo.Context, log *slog.Logger, err error) error {
	status := http.StatusBadRequest
	if service.ResultOf(err) == service.ResultError {
		status = statusOf(service.KindOf(err))
	}
	return writeError(c, log, status, err)
}

func writeError(c echo.Context, log *slog.Logger, status int, err error) error {
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			slog.String("method", c.Request().Method),
			slog.String("path", c.Path()),
			slog.Any("err", err))
	}
	return c.JSON(status, echo.Map{"error": service.MessageOf(err)})
}

// invalid answers a request that failed binding or validation.
func invalid(c echo.Context, err error) error {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request", "details": verrs})
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
}

// bindValid binds the body into v and runs its Validate method.
func bindValid(c echo.Context, v validation.Validatable) error {
	if err := c.Bind(v); err != nil {
		return err
	}
	return v.Validate()
}

func paramUUID(c echo.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	return id, err == nil
}

func badParam(c echo.Context, name string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + name})
}

func clientInfo(c echo.Context) service.ClientInfo {
	return service.ClientInfo{IP: c.RealIP(), UserAgent: c.Request().UserAgent()}
}
