package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auth-service/internal/utils"
)

type mockProvider struct{ mock.Mock }

func (m *mockProvider) Name() string { return "yandex" }

func (m *mockProvider) AuthCodeURL(state string) string {
	return m.Called(state).String(0)
}

func (m *mockProvider) Exchange(ctx context.Context, code string) (ExternalIdentity, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(ExternalIdentity), args.Error(1)
}

func newOAuth(h *harness, p OAuthProvider) *OAuthService {
	return NewOAuthService(h.store.OAuth(), h.denylist, time.Minute, h.auth, discard, p)
}

func TestOAuth_LinksExistingUserByEmail(t *testing.T) {
	h := newHarness(t)
	svc := newOAuth(h, &mockProvider{})
	u := h.register(t, "alice@yandex.ru", "pw")

	got, err := svc.LinkOrCreate(context.Background(), "yandex", ExternalIdentity{
		ProviderUserID: "1001", Email: "Alice@yandex.ru", AccessToken: "at1",
	})
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	accts := h.store.Accounts()
	require.Len(t, accts, 1)
	assert.Equal(t, u.ID, accts[0].UserID)
	assert.Equal(t, "at1", accts[0].AccessToken)
}

func TestOAuth_RelinkUpdatesInPlace(t *testing.T) {
	h := newHarness(t)
	svc := newOAuth(h, &mockProvider{})
	ctx := context.Background()

	first, err := svc.LinkOrCreate(ctx, "yandex", ExternalIdentity{ProviderUserID: "42", AccessToken: "old"})
	require.NoError(t, err)
	assert.Equal(t, "42@yandex.oauth.local", first.Email)

	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	second, err := svc.LinkOrCreate(ctx, "yandex", ExternalIdentity{
		ProviderUserID: "42", AccessToken: "new", RefreshToken: "rt", ExpiresAt: &exp,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	accts := h.store.Accounts()
	require.Len(t, accts, 1)
	assert.Equal(t, "new", accts[0].AccessToken)
	assert.Equal(t, "rt", accts[0].RefreshToken)
	require.NotNil(t, accts[0].ExpiresAt)
	assert.Equal(t, exp, *accts[0].ExpiresAt)
}

func TestOAuth_CreatesUserWithProviderEmail(t *testing.T) {
	h := newHarness(t)
	svc := newOAuth(h, &mockProvider{})

	u, err := svc.LinkOrCreate(context.Background(), "yandex", ExternalIdentity{ProviderUserID: "7", Email: "new@yandex.ru"})
	require.NoError(t, err)
	assert.Equal(t, "new@yandex.ru", u.Email)
	assert.NotEmpty(t, u.PasswordHash)

	_, err = h.auth.Login(context.Background(), "new@yandex.ru", "", ClientInfo{})
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestOAuth_RequiresProviderUserID(t *testing.T) {
	h := newHarness(t)
	svc := newOAuth(h, &mockProvider{})
	_, err := svc.LinkOrCreate(context.Background(), "yandex", ExternalIdentity{Email: "x@y.z"})
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestOAuth_CallbackIssuesSession(t *testing.T) {
	h := newHarness(t)
	p := &mockProvider{}
	p.On("Exchange", mock.Anything, "code-1").
		Return(ExternalIdentity{ProviderUserID: "99", Email: "eve@yandex.ru", AccessToken: "at"}, nil).Once()
	svc := newOAuth(h, p)
	ctx := context.Background()

	s, err := svc.Callback(ctx, "yandex", "code-1", ClientInfo{IP: "10.0.0.9"})
	require.NoError(t, err)
	c, err := h.tokens.Verify(ctx, s.Tokens.Access.Raw, utils.AccessTokenType)
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, c.Subject)

	page, err := h.auth.History(ctx, s.User.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	// Replayed callback: rejected without a second exchange.
	_, err = svc.Callback(ctx, "yandex", "code-1", ClientInfo{})
	assert.Equal(t, KindValidation, KindOf(err))
	p.AssertNumberOfCalls(t, "Exchange", 1)
}

func TestOAuth_CallbackErrors(t *testing.T) {
	h := newHarness(t)
	p := &mockProvider{}
	p.On("Exchange", mock.Anything, "bad").Return(ExternalIdentity{}, errors.New("invalid_grant"))
	svc := newOAuth(h, p)
	ctx := context.Background()

	_, err := svc.Callback(ctx, "github", "x", ClientInfo{})
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = svc.Callback(ctx, "yandex", "", ClientInfo{})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = svc.Callback(ctx, "yandex", "bad", ClientInfo{})
	assert.Equal(t, KindUnauthorized, KindOf(err))

	h.denylist.Err = errors.New("redis down")
	_, err = svc.Callback(ctx, "yandex", "fresh", ClientInfo{})
	assert.Equal(t, KindUnavailable, KindOf(err))
}

func TestOAuth_LoginURL(t *testing.T) {
	h := newHarness(t)
	p := &mockProvider{}
	p.On("AuthCodeURL", "state-1").Return("https://oauth.yandex.ru/authorize?state=state-1")
	svc := newOAuth(h, p)

	u, err := svc.LoginURL("yandex", "state-1")
	require.NoError(t, err)
	assert.Contains(t, u, "state-1")

	_, err = svc.LoginURL("vk", "s")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestPlaceholderEmail(t *testing.T) {
	assert.Equal(t, "abc_1@yandex.oauth.local", placeholderEmail("yandex", "ABC 1"))
}
