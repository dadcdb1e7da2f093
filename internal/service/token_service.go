package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/utils"
)

// Denylist records revoked token ids until their natural expiry.
type Denylist interface {
	Add(ctx context.Context, jti string, ttl time.Duration) error
	Contains(ctx context.Context, jti string) (bool, error)
}

// TokenConfig holds signing settings.
type TokenConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Token is a signed JWT with its id and expiry.
type Token struct {
	Raw       string
	ID        string
	ExpiresAt time.Time
}

// TokenPair is the result of a successful login.
type TokenPair struct {
	Access  Token
	Refresh Token
}

// Claims is the verified content of a token.
type Claims struct {
	Subject   uuid.UUID
	ID        string
	Type      utils.TokenType
	Role      model.RoleName
	RefreshID string
	IssuedAt  time.Time
	ExpiresAt time.Time
	// RefreshExpiresAt is set on access tokens: the exp of the paired
	// refresh token.
	RefreshExpiresAt time.Time
}

// HasRole reports whether the token carries role r.
func (c Claims) HasRole(r model.RoleName) bool {
	return r.Valid() && c.Role == r
}

// RoleResolver looks up the current role of a user.
type RoleResolver func(ctx context.Context, userID uuid.UUID) (model.RoleName, error)

// TokenService mints, verifies and revokes JWTs.
type TokenService struct {
	cfg      TokenConfig
	denylist Denylist
	log      *slog.Logger
	now      func() time.Time
}

func NewTokenService(cfg TokenConfig, denylist Denylist, log *slog.Logger) *TokenService {
	if log == nil {
		log = slog.Default()
	}
	return &TokenService{cfg: cfg, denylist: denylist, log: log, now: time.Now}
}

// SetClock replaces the time source used for issuing and verifying.
func (s *TokenService) SetClock(now func() time.Time) { s.now = now }

// sign mints one token. paired is the refresh token an access token is
// issued with; it is zero for refresh tokens.
func (s *TokenService) sign(typ utils.TokenType, subject uuid.UUID, role model.RoleName, paired Token, iat time.Time, ttl time.Duration) (Token, error) {
	jti := uuid.NewString()
	exp := iat.Add(ttl)
	c := utils.Claims{
		Type:      typ,
		Roles:     role.Ptr(),
		RefreshID: paired.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			ID:        jti,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if !paired.ExpiresAt.IsZero() {
		c.RefreshExpiresAt = jwt.NewNumericDate(paired.ExpiresAt)
	}
	raw, err := utils.SignClaims(s.cfg.Secret, c)
	if err != nil {
		return Token{}, err
	}
	return Token{Raw: raw, ID: jti, ExpiresAt: exp}, nil
}

// IssuePair mints an access and a refresh token for subject. Both carry the
// role claim; the access token also carries the refresh token's id.
func (s *TokenService) IssuePair(subject uuid.UUID, role model.RoleName) (TokenPair, error) {
	iat := s.now().UTC().Truncate(time.Second)
	refresh, err := s.sign(utils.RefreshTokenType, subject, role, Token{}, iat, s.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, internal("sign refresh token", err)
	}
	access, err := s.sign(utils.AccessTokenType, subject, role, refresh, iat, s.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, internal("sign access token", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Verify checks signature, expiry, type and the denylist. Authentication
// failures are KindUnauthorized wrapping one of the ErrToken* causes; a
// denylist outage is KindUnavailable.
func (s *TokenService) Verify(ctx context.Context, raw string, want utils.TokenType) (Claims, error) {
	if raw == "" {
		return Claims{}, invalidToken(ErrTokenMalformed)
	}
	uc, err := utils.ParseClaims(s.cfg.Secret, raw, s.cfg.Issuer, s.now)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, invalidToken(ErrTokenExpired)
		}
		return Claims{}, invalidToken(errors.Join(ErrTokenMalformed, err))
	}
	if uc.Type != want {
		return Claims{}, invalidToken(ErrTokenType)
	}
	sub, err := uuid.Parse(uc.Subject)
	if err != nil || uc.ID == "" {
		return Claims{}, invalidToken(ErrTokenMalformed)
	}

	revoked, err := s.denylist.Contains(ctx, uc.ID)
	if err != nil {
		return Claims{}, unavailable("check denylist", err)
	}
	if revoked {
		return Claims{}, invalidToken(ErrTokenRevoked)
	}

	c := Claims{
		Subject:   sub,
		ID:        uc.ID,
		Type:      uc.Type,
		RefreshID: uc.RefreshID,
		IssuedAt:  uc.IssuedAt.Time,
		ExpiresAt: uc.ExpiresAt.Time,
	}
	if uc.Roles != nil {
		c.Role = model.ParseRoleName(*uc.Roles)
	}
	if uc.RefreshExpiresAt != nil {
		c.RefreshExpiresAt = uc.RefreshExpiresAt.Time
	}
	return c, nil
}

// Revoke denylists the token for the rest of its lifetime. Revoking an
// already revoked or expired token succeeds.
func (s *TokenService) Revoke(ctx context.Context, c Claims) error {
	return s.RevokeID(ctx, c.ID, c.ExpiresAt)
}

// RevokeID denylists jti until exp.
func (s *TokenService) RevokeID(ctx context.Context, jti string, exp time.Time) error {
	if jti == "" {
		return nil
	}
	if err := s.denylist.Add(ctx, jti, exp.Sub(s.now())); err != nil {
		return unavailable("write denylist", err)
	}
	return nil
}

// RevokeSession revokes the refresh token an access token was issued with,
// then the access token itself. The access token goes last so a failed
// call can be retried with it.
func (s *TokenService) RevokeSession(ctx context.Context, access Claims) error {
	if access.RefreshID != "" {
		exp := access.RefreshExpiresAt
		if exp.IsZero() {
			exp = access.IssuedAt.Add(s.cfg.RefreshTTL)
		}
		if err := s.RevokeID(ctx, access.RefreshID, exp); err != nil {
			return err
		}
	}
	return s.Revoke(ctx, access)
}

// Refresh mints a new access token from a valid refresh token. The refresh
// token itself stays valid until it expires or the session is logged out.
// When resolve is set the new token carries the user's current role.
func (s *TokenService) Refresh(ctx context.Context, raw string, resolve RoleResolver) (Token, Claims, error) {
	rc, err := s.Verify(ctx, raw, utils.RefreshTokenType)
	if err != nil {
		return Token{}, Claims{}, err
	}
	role := rc.Role
	if resolve != nil {
		if role, err = resolve(ctx, rc.Subject); err != nil {
			return Token{}, Claims{}, err
		}
	}
	iat := s.now().UTC().Truncate(time.Second)
	access, err := s.sign(utils.AccessTokenType, rc.Subject, role, Token{ID: rc.ID, ExpiresAt: rc.ExpiresAt}, iat, s.cfg.AccessTTL)
	if err != nil {
		return Token{}, Claims{}, internal("sign access token", err)
	}
	s.log.Debug("access token refreshed", slog.String("user_id", rc.Subject.String()))
	return access, Claims{
		Subject:   rc.Subject,
		ID:        access.ID,
		Type:      utils.AccessTokenType,
		Role:      role,
		RefreshID: rc.ID,
		IssuedAt:  iat,
		ExpiresAt: access.ExpiresAt,

		RefreshExpiresAt: rc.ExpiresAt,
	}, nil
}
