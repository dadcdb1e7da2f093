// Package utils provides helpers for signing tokens and hashing passwords.
package utils

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType tells access tokens and refresh tokens apart. It is carried
// in the "type" claim so one kind can never be presented as the other.
type TokenType string

const (
	AccessTokenType  TokenType = "access"
	RefreshTokenType TokenType = "refresh"
)

// Claims is the JWT payload issued by the service.
//
// Fields:
//   - Type:      "access" or "refresh".
//   - Roles:     the user's role title, or JSON null when the user has none.
//   - RefreshID: on access tokens, the jti of the refresh token issued in
//     the same pair; logout uses it to revoke both halves.
//   - RefreshExpiresAt: on access tokens, the exp of that refresh token, so
//     its denylist entry lives exactly as long as the token.
//   - RegisteredClaims: sub (user id), jti, iat, exp and iss.
type Claims struct {
	Type      TokenType `json:"type"`
	Roles     *string   `json:"roles"`
	RefreshID string    `json:"rid,omitempty"`

	RefreshExpiresAt *jwt.NumericDate `json:"rexp,omitempty"`
	jwt.RegisteredClaims
}

// ErrUnsignedTokenType is returned by SignClaims for an unknown Type.
var ErrUnsignedTokenType = errors.New("unknown token type")

// SignClaims serializes c and signs it with HS256.
func SignClaims(secret []byte, c Claims) (string, error) {
	if c.Type != AccessTokenType && c.Type != RefreshTokenType {
		return "", ErrUnsignedTokenType
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
}

// ParseClaims verifies the signature and expiry of raw and returns its
// claims. now supplies the clock used for the exp check. Errors are the
// jwt package sentinels (jwt.ErrTokenExpired, jwt.ErrTokenMalformed, ...)
// so callers can classify them with errors.Is.
func ParseClaims(secret []byte, raw string, issuer string, now func() time.Time) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if now != nil {
		opts = append(opts, jwt.WithTimeFunc(now))
	}

	var c Claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// RandomHex returns n bytes of crypto/rand output, hex-encoded.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
