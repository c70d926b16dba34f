package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"quizonomy/internal/apperr"
	"quizonomy/internal/config"
	"quizonomy/internal/models"

	"github.com/dgrijalva/jwt-go"
)

const (
	AccessTokenTTL = time.Hour

	// sessionKeyBytes is the entropy behind session keys and refresh tokens.
	sessionKeyBytes = 256
)

// TokenIssuer signs short-lived access tokens and manages the opaque
// refresh tokens stored in the session registry.
type TokenIssuer struct {
	store    Store
	issuer   string
	audience string
	key      []byte
	now      func() time.Time
}

func NewTokenIssuer(store Store, cfg config.AuthConfig) *TokenIssuer {
	key := make([]byte, len(cfg.Key))
	copy(key, cfg.Key)
	return &TokenIssuer{
		store:    store,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		key:      key,
		now:      time.Now,
	}
}

// IssueAccessToken returns an HS256 token whose subject is the username.
func (t *TokenIssuer) IssueAccessToken(user *models.User) (string, error) {
	now := t.now()
	claims := jwt.StandardClaims{
		Subject:   user.Username,
		Issuer:    t.issuer,
		Audience:  t.audience,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(AccessTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.key)
}

// ValidateAccessToken returns the token subject. Any failure, including
// expiry, reports ok=false with no further detail.
func (t *TokenIssuer) ValidateAccessToken(tokenString string) (subject string, ok bool) {
	parser := &jwt.Parser{
		ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
		SkipClaimsValidation: true,
	}
	var claims jwt.StandardClaims
	token, err := parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return t.key, nil
	})
	if err != nil || !token.Valid {
		return "", false
	}

	// No clock skew allowance.
	if claims.ExpiresAt == 0 || t.now().Unix() >= claims.ExpiresAt {
		return "", false
	}
	if !claims.VerifyIssuer(t.issuer, true) || !claims.VerifyAudience(t.audience, true) {
		return "", false
	}
	if claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

// IssueRefreshToken stores a new random key bound to the user and returns it.
func (t *TokenIssuer) IssueRefreshToken(ctx context.Context, user *models.User) (string, error) {
	key, err := newSessionKey()
	if err != nil {
		return "", err
	}
	if err := t.store.InsertSession(ctx, &models.Session{Key: key, UserID: user.ID}); err != nil {
		return "", err
	}
	return key, nil
}

// RotateAccessToken mints an access token for the refresh token's owner.
// ok is false when the refresh token is unknown or revoked.
func (t *TokenIssuer) RotateAccessToken(ctx context.Context, refreshToken string) (token string, ok bool, err error) {
	if refreshToken == "" {
		return "", false, nil
	}
	session, err := t.store.FindSessionByKey(ctx, refreshToken)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	token, err = t.IssueAccessToken(&session.User)
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

// Revoke deletes the refresh token. Revoking an unknown token succeeds.
func (t *TokenIssuer) Revoke(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return t.store.DeleteSessionsByKey(ctx, refreshToken)
}

func newSessionKey() (string, error) {
	buf := make([]byte, sessionKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
