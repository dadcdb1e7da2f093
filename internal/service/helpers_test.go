package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/service/servicetest"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type harness struct {
	store    *servicetest.Store
	denylist *servicetest.Denylist
	events   *servicetest.Publisher
	clock    *clock
	tokens   *TokenService
	users    *UserService
	auth     *AuthService
	roles    *RoleService
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:    servicetest.NewStore(),
		denylist: servicetest.NewDenylist(),
		events:   &servicetest.Publisher{},
		clock:    &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	h.denylist.Now = h.clock.Now
	h.tokens = NewTokenService(TokenConfig{
		Secret:     []byte("test-secret"),
		Issuer:     "auth-service",
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 14 * 24 * time.Hour,
	}, h.denylist, discard)
	h.tokens.SetClock(h.clock.Now)
	h.users = NewUserService(h.store.Users(), servicetest.Hasher{}, h.events, discard)

	var err error
	h.auth, err = NewAuthService(h.users, h.store.History(), h.tokens, discard)
	require.NoError(t, err)
	h.auth.now = h.clock.Now
	h.roles = NewRoleService(h.store.Roles(), h.store.Users(), discard)
	return h
}

func (h *harness) register(t *testing.T, email, password string) model.User {
	t.Helper()
	u, err := h.auth.Register(context.Background(), NewUser{Email: email, Password: password})
	require.NoError(t, err)
	return u
}

func (h *harness) login(t *testing.T, email, password string) Session {
	t.Helper()
	s, err := h.auth.Login(context.Background(), email, password, ClientInfo{IP: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	return s
}

func (h *harness) grant(t *testing.T, u model.User, role model.RoleName) {
	t.Helper()
	r, ok := h.store.RoleByTitle(role.String())
	require.True(t, ok)
	require.NoError(t, h.roles.AssignRole(context.Background(), r.ID, u.ID))
}
