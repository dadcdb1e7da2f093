package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auth-service/internal/service"
	"github.com/iliyamo/auth-service/internal/service/servicetest"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestStatusOf(t *testing.T) {
	cases := map[service.Kind]int{
		service.KindValidation:   http.StatusBadRequest,
		service.KindUnauthorized: http.StatusUnauthorized,
		service.KindForbidden:    http.StatusForbidden,
		service.KindNotFound:     http.StatusNotFound,
		service.KindUnavailable:  http.StatusServiceUnavailable,
		service.KindInternal:     http.StatusInternalServerError,
	}
	for k, want := range cases {
		assert.Equal(t, want, statusOf(k), k.String())
	}
}

func TestFailHidesInternalCause(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, fail(c, quiet, errors.New("dial tcp 10.0.0.7:3306: connection refused")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, service.MsgInternal, decode(t, rec)["error"])
}

func TestFailRoleFoldsNotFound(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)

	err := &service.Error{Kind: service.KindNotFound, Message: service.MsgRoleNotFound}
	require.NoError(t, failRole(c, quiet, err))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.MsgRoleNotFound, decode(t, rec)["error"])

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	require.NoError(t, failRole(c, quiet, &service.Error{Kind: service.KindUnavailable, Message: service.MsgUnavailable}))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestValidation(t *testing.T) {
	empty := ""
	long := strings.Repeat("x", 101)

	assert.NoError(t, (&registerReq{Email: "a@example.com", Password: "pw1"}).Validate())
	assert.Error(t, (&registerReq{Email: "a@example.com"}).Validate())
	assert.Error(t, (&registerReq{Email: "nope", Password: "pw"}).Validate())
	assert.NoError(t, (&profileReq{}).Validate())
	assert.Error(t, (&profileReq{Email: &empty}).Validate())
	assert.Error(t, (&profileReq{FirstName: &long}).Validate())
	assert.Error(t, (&roleReq{Title: long}).Validate())

	q := pageQuery{}
	q.defaults()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 10, q.PageSize)
	assert.Error(t, (&pageQuery{Page: 1, PageSize: service.MaxPageSize + 1}).Validate())
	assert.Error(t, (&pageQuery{Page: 1 << 62, PageSize: 10}).Validate())
	assert.NoError(t, (&pageQuery{Page: service.MaxPage, PageSize: service.MaxPageSize}).Validate())
}

type stubProvider struct{ exchanges int }

func (p *stubProvider) Name() string { return "yandex" }

func (p *stubProvider) AuthCodeURL(state string) string {
	return "https://provider.test/authorize?state=" + state
}

func (p *stubProvider) Exchange(context.Context, string) (service.ExternalIdentity, error) {
	p.exchanges++
	return service.ExternalIdentity{ProviderUserID: "42", Email: "oauth@example.com", AccessToken: "at"}, nil
}

func newOAuthEcho(t *testing.T) (*echo.Echo, *stubProvider) {
	t.Helper()
	store := servicetest.NewStore()
	deny := servicetest.NewDenylist()
	tokens := service.NewTokenService(service.TokenConfig{
		Secret:     []byte("oauth-secret"),
		Issuer:     "auth-service",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}, deny, quiet)
	users := service.NewUserService(store.Users(), servicetest.Hasher{}, nil, quiet)
	auth, err := service.NewAuthService(users, store.History(), tokens, quiet)
	require.NoError(t, err)
	p := &stubProvider{}
	h := NewOAuthHandler(service.NewOAuthService(store.OAuth(), deny, time.Minute, auth, quiet, p), false, quiet)

	e := echo.New()
	e.GET("/oauth/:provider/login", h.Login)
	e.GET("/oauth/:provider/callback", h.Callback)
	return e, p
}

func TestOAuthFlow(t *testing.T) {
	e, p := newOAuthEcho(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth/yandex/login", nil))
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	state := cookies[0].Value
	assert.Equal(t, "https://provider.test/authorize?state="+state, rec.Header().Get(echo.HeaderLocation))

	callback := func(q string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/oauth/yandex/callback?"+q, nil)
		req.AddCookie(&http.Cookie{Name: stateCookie, Value: state})
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec = callback("code=abc&state=" + state)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "oauth@example.com", body["user"].(map[string]any)["email"])
	assert.NotEmpty(t, body["access"].(map[string]any)["token"])

	rec = callback("code=abc&state=" + state)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, p.exchanges)

	rec = callback("code=def&state=forged")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid oauth state", decode(t, rec)["error"])
}

func TestOAuthUnknownProvider(t *testing.T) {
	e, _ := newOAuthEcho(t)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth/github/login", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReady(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()

	e := echo.New()
	e.GET("/readyz", Ready{DB: db, RDB: rdb}.Handle)

	mock.ExpectPing()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	mr.Close()
	mock.ExpectPing()
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["mysql"])
	assert.NotEqual(t, "ok", body["redis"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
