package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/service"
	"github.com/iliyamo/auth-service/internal/utils"
)

type mockVerifier struct{ mock.Mock }

func (m *mockVerifier) Verify(ctx context.Context, raw string, want utils.TokenType) (service.Claims, error) {
	args := m.Called(ctx, raw, want)
	return args.Get(0).(service.Claims), args.Error(1)
}

func serve(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func whoami(c echo.Context) error {
	cl, _ := ClaimsFrom(c)
	return c.JSON(http.StatusOK, echo.Map{"sub": cl.Subject.String(), "raw": RawToken(c)})
}

func TestJWTAuth(t *testing.T) {
	sub := uuid.New()
	v := &mockVerifier{}
	v.On("Verify", mock.Anything, "good", utils.AccessTokenType).
		Return(service.Claims{Subject: sub, Role: model.RoleAdmin}, nil)
	v.On("Verify", mock.Anything, "revoked", utils.AccessTokenType).
		Return(service.Claims{}, &service.Error{Kind: service.KindUnauthorized, Message: service.MsgInvalidToken, Err: service.ErrTokenRevoked})
	v.On("Verify", mock.Anything, "outage", utils.AccessTokenType).
		Return(service.Claims{}, &service.Error{Kind: service.KindUnavailable, Message: service.MsgUnavailable, Err: errors.New("redis")})

	var logs bytes.Buffer
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(v, utils.AccessTokenType, slog.New(slog.NewJSONHandler(&logs, nil))))

	rec := serve(e, http.MethodGet, "/me", "good")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), sub.String())
	assert.Contains(t, rec.Body.String(), `"raw":"good"`)

	for _, tok := range []string{"", "revoked"} {
		rec = serve(e, http.MethodGet, "/me", tok)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "token %q", tok)
		assert.JSONEq(t, `{"error":"invalid token"}`, rec.Body.String())
	}

	assert.Zero(t, logs.Len())

	rec = serve(e, http.MethodGet, "/me", "outage")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, logs.String(), `"msg":"token verification unavailable"`)
	assert.Contains(t, logs.String(), `"path":"/me"`)
}

func TestBearerToken(t *testing.T) {
	e := echo.New()
	for header, want := range map[string]string{
		"Bearer abc":    "abc",
		"bearer abc":    "abc",
		"Bearer   abc ": "abc",
		"Basic abc":     "",
		"Bearer ":       "",
		"":              "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, header)
		c := e.NewContext(req, httptest.NewRecorder())
		got, ok := BearerToken(c)
		assert.Equal(t, want, got, "header %q", header)
		assert.Equal(t, want != "", ok, "header %q", header)
	}
}

func TestRequireRole(t *testing.T) {
	v := &mockVerifier{}
	v.On("Verify", mock.Anything, "root", utils.AccessTokenType).
		Return(service.Claims{Subject: uuid.New(), Role: model.RoleSuperuser}, nil)
	v.On("Verify", mock.Anything, "admin", utils.AccessTokenType).
		Return(service.Claims{Subject: uuid.New(), Role: model.RoleAdmin}, nil)
	v.On("Verify", mock.Anything, "plain", utils.AccessTokenType).
		Return(service.Claims{Subject: uuid.New()}, nil)

	e := echo.New()
	e.GET("/admin", whoami, JWTAuth(v, utils.AccessTokenType, nil), RequireRole(model.RoleSuperuser))

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/admin", "root").Code)

	for _, tok := range []string{"admin", "plain"} {
		rec := serve(e, http.MethodGet, "/admin", tok)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.JSONEq(t, `{"error":"Access forbidden: superuser required"}`, rec.Body.String())
	}
}

func TestTokenBucket(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour, TTL: 2 * time.Hour, Prefix: "rl",
	}
	e := echo.New()
	e.POST("/auth/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, rdb, nil))

	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/auth/login", "").Code)
	rec := serve(e, http.MethodPost, "/auth/login", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(e, http.MethodPost, "/auth/login", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestTokenBucketFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })
	mr.Close()

	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute, Prefix: "rl"}
	e := echo.New()
	e.POST("/auth/register", func(c echo.Context) error { return c.NoContent(http.StatusCreated) }, NewTokenBucket(cfg, rdb, nil))

	require.Equal(t, http.StatusCreated, serve(e, http.MethodPost, "/auth/register", "").Code)
}

func TestTokenBucketDisabled(t *testing.T) {
	e := echo.New()
	e.POST("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil, nil))
	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/x", "").Code)
}
