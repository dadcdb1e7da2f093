package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/utils"
)

// ExternalIdentity is what a provider returns after the code exchange.
type ExternalIdentity struct {
	ProviderUserID string
	Email          string
	AccessToken    string
	RefreshToken   string
	ExpiresAt      *time.Time
}

// OAuthProvider performs the provider-specific parts of the flow.
type OAuthProvider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (ExternalIdentity, error)
}

// OAuthStore persists providers and account links.
type OAuthStore interface {
	EnsureProvider(ctx context.Context, name string) (model.OAuthProvider, error)
	UserIDByAccount(ctx context.Context, providerID uuid.UUID, providerUserID string) (uuid.UUID, error)
	UpsertAccount(ctx context.Context, a *model.OAuthAccount) error
	CreateLinkedUser(ctx context.Context, u *model.User, a *model.OAuthAccount) error
}

// CodeMarker remembers authorization codes for a short while.
type CodeMarker interface {
	MarkCodeSeen(ctx context.Context, code string, ttl time.Duration) (bool, error)
}

// OAuthService links provider identities to local users and opens
// sessions for them.
type OAuthService struct {
	providers map[string]OAuthProvider
	store     OAuthStore
	markers   CodeMarker
	codeTTL   time.Duration
	auth      *AuthService
	log       *slog.Logger
}

func NewOAuthService(store OAuthStore, markers CodeMarker, codeTTL time.Duration, auth *AuthService, log *slog.Logger, providers ...OAuthProvider) *OAuthService {
	if log == nil {
		log = slog.Default()
	}
	if codeTTL <= 0 {
		codeTTL = time.Minute
	}
	s := &OAuthService{
		providers: make(map[string]OAuthProvider, len(providers)),
		store:     store,
		markers:   markers,
		codeTTL:   codeTTL,
		auth:      auth,
		log:       log,
	}
	for _, p := range providers {
		s.providers[p.Name()] = p
	}
	return s
}

func (s *OAuthService) provider(name string) (OAuthProvider, error) {
	p, ok := s.providers[name]
	if !ok {
		return nil, notFound(fmt.Sprintf("Unknown OAuth provider %q", name), nil)
	}
	return p, nil
}

// LoginURL returns the provider URL the browser is redirected to.
func (s *OAuthService) LoginURL(name, state string) (string, error) {
	p, err := s.provider(name)
	if err != nil {
		return "", err
	}
	return p.AuthCodeURL(state), nil
}

// Callback exchanges code, links the identity and opens a session. A code
// seen before is rejected without a second exchange, since some providers
// deliver the same callback twice.
func (s *OAuthService) Callback(ctx context.Context, name, code string, client ClientInfo) (Session, error) {
	p, err := s.provider(name)
	if err != nil {
		return Session{}, err
	}
	if code == "" {
		return Session{}, validationf("code is required")
	}
	first, err := s.markers.MarkCodeSeen(ctx, code, s.codeTTL)
	if err != nil {
		return Session{}, unavailable("mark oauth code", err)
	}
	if !first {
		s.log.Warn("oauth code replayed", slog.String("provider", name), slog.String("ip", client.IP))
		return Session{}, validationf("authorization code already used")
	}

	id, err := p.Exchange(ctx, code)
	if err != nil {
		s.log.Warn("oauth exchange failed", slog.String("provider", name), slog.Any("err", err))
		return Session{}, unauthorized("OAuth authorization failed", err)
	}
	u, err := s.LinkOrCreate(ctx, name, id)
	if err != nil {
		return Session{}, err
	}
	return s.auth.startSession(ctx, u, client, uuid.Nil, name)
}

// LinkOrCreate resolves the local user for a provider identity: by email
// first, then by an existing link, else a new user is created. The link
// is upserted so tokens are refreshed in place.
func (s *OAuthService) LinkOrCreate(ctx context.Context, providerName string, id ExternalIdentity) (model.User, error) {
	if id.ProviderUserID == "" {
		return model.User{}, validationf("provider did not return a user id")
	}
	prov, err := s.store.EnsureProvider(ctx, providerName)
	if err != nil {
		return model.User{}, internal("ensure provider", err)
	}
	acct := model.OAuthAccount{
		ProviderID:     prov.ID,
		ProviderUserID: id.ProviderUserID,
		AccessToken:    id.AccessToken,
		RefreshToken:   id.RefreshToken,
		ExpiresAt:      id.ExpiresAt,
	}

	u, err := s.findLinked(ctx, prov.ID, id)
	switch {
	case err == nil:
		acct.UserID = u.ID
		if err := s.store.UpsertAccount(ctx, &acct); err != nil {
			return model.User{}, internal("upsert oauth account", err)
		}
		return u, nil
	case !errors.Is(err, repository.ErrNotFound):
		return model.User{}, internal("resolve oauth user", err)
	}

	u, err = s.createLinked(ctx, providerName, id, &acct)
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost a race with a concurrent callback for the same identity.
		if u, err = s.findLinked(ctx, prov.ID, id); err == nil {
			acct.UserID = u.ID
			err = s.store.UpsertAccount(ctx, &acct)
		}
	}
	if err != nil {
		return model.User{}, internal("create oauth user", err)
	}
	return u, nil
}

func (s *OAuthService) findLinked(ctx context.Context, providerID uuid.UUID, id ExternalIdentity) (model.User, error) {
	if email := model.NormalizeEmail(id.Email); email != "" {
		u, err := s.auth.users.GetByEmail(ctx, email)
		if err == nil || !errors.Is(err, repository.ErrNotFound) {
			return u, err
		}
	}
	uid, err := s.store.UserIDByAccount(ctx, providerID, id.ProviderUserID)
	if err != nil {
		return model.User{}, err
	}
	return s.auth.users.GetByID(ctx, uid)
}

func (s *OAuthService) createLinked(ctx context.Context, providerName string, id ExternalIdentity, acct *model.OAuthAccount) (model.User, error) {
	email := model.NormalizeEmail(id.Email)
	if email == "" {
		email = placeholderEmail(providerName, id.ProviderUserID)
	}
	secret, err := utils.RandomHex(32)
	if err != nil {
		return model.User{}, err
	}
	hash, err := s.auth.hasher.Hash(secret)
	if err != nil {
		return model.User{}, err
	}
	u := model.User{ID: uuid.New(), Email: email, PasswordHash: hash}
	if err := s.store.CreateLinkedUser(ctx, &u, acct); err != nil {
		return model.User{}, err
	}
	s.log.Info("user created from oauth",
		slog.String("provider", providerName),
		slog.String("user_id", u.ID.String()))
	return u, nil
}

// placeholderEmail builds a stable address for identities without email.
func placeholderEmail(provider, providerUserID string) string {
	local := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_' || r == '.' {
			return r
		}
		return '_'
	}, strings.ToLower(providerUserID))
	return fmt.Sprintf("%s@%s.oauth.local", local, provider)
}
