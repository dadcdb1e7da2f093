package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/service"
	"github.com/iliyamo/auth-service/internal/utils"
)

const (
	stateCookie = "oauth_state"
	stateTTL    = 10 * time.Minute
)

// OAuthHandler drives the authorization-code flow for the configured
// providers. The provider is taken from the :provider path segment.
type OAuthHandler struct {
	OAuth *service.OAuthService
	Log   *slog.Logger
	// SecureCookie marks the state cookie Secure; off only in development.
	SecureCookie bool
}

func NewOAuthHandler(oauth *service.OAuthService, secure bool, log *slog.Logger) *OAuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &OAuthHandler{OAuth: oauth, Log: log, SecureCookie: secure}
}

func (h *OAuthHandler) setState(c echo.Context, value string, maxAge int) {
	c.SetCookie(&http.Cookie{
		Name:     stateCookie,
		Value:    value,
		Path:     "/oauth",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// Login redirects the browser to the provider's consent page.
func (h *OAuthHandler) Login(c echo.Context) error {
	state, err := utils.RandomHex(16)
	if err != nil {
		return fail(c, h.Log, err)
	}
	url, err := h.OAuth.LoginURL(c.Param("provider"), state)
	if err != nil {
		return fail(c, h.Log, err)
	}
	h.setState(c, state, int(stateTTL.Seconds()))
	return c.Redirect(http.StatusTemporaryRedirect, url)
}

// Callback checks the state, exchanges the code and answers with a token
// pair for the linked user.
func (h *OAuthHandler) Callback(c echo.Context) error {
	cookie, err := c.Cookie(stateCookie)
	state := c.QueryParam("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid oauth state"})
	}
	h.setState(c, "", -1)

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.OAuth.Callback(ctx, c.Param("provider"), c.QueryParam("code"), clientInfo(c))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toAuth(s))
}
