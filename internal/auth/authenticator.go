package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"quizonomy/internal/apperr"
	"quizonomy/internal/config"
	"quizonomy/internal/models"
)

// Principal is an authenticated caller.
type Principal struct {
	Username string
}

// Credentials is what a sign-in hands back in the response body.
// The token scheme delivers everything in cookies and leaves it empty.
type Credentials struct {
	SessionKey string `json:"key,omitempty"`
}

// Authenticator resolves request credentials to a Principal. Exactly one
// implementation is active per deployment, chosen by config.
//
// Authenticate reports ok=false with a nil error when no usable credential
// is present; a non-nil error means the store failed.
type Authenticator interface {
	Authenticate(w http.ResponseWriter, r *http.Request) (Principal, bool, error)
	SignIn(w http.ResponseWriter, r *http.Request, user *models.User) (Credentials, error)
	SignOut(w http.ResponseWriter, r *http.Request) error
}

// NewAuthenticator picks the scheme named in cfg.
func NewAuthenticator(cfg config.AuthConfig, store Store, logger *slog.Logger) (Authenticator, error) {
	switch cfg.Scheme {
	case config.SchemeSession:
		return NewSessionAuthenticator(store, logger), nil
	case config.SchemeToken:
		return NewTokenAuthenticator(NewTokenIssuer(store, cfg), cfg, logger), nil
	default:
		return nil, errors.New("unknown authentication scheme " + cfg.Scheme)
	}
}

// SessionAuthenticator treats the raw Authorization header as a session key.
// Sessions do not expire; they live until signed out.
type SessionAuthenticator struct {
	store  Store
	logger *slog.Logger
}

func NewSessionAuthenticator(store Store, logger *slog.Logger) *SessionAuthenticator {
	return &SessionAuthenticator{store: store, logger: logger}
}

func (a *SessionAuthenticator) Authenticate(w http.ResponseWriter, r *http.Request) (Principal, bool, error) {
	key := r.Header.Get("Authorization")
	if key == "" {
		return Principal{}, false, nil
	}
	session, err := a.store.FindSessionByKey(r.Context(), key)
	if errors.Is(err, apperr.ErrNotFound) {
		a.logger.Debug("unknown session key")
		return Principal{}, false, nil
	}
	if err != nil {
		return Principal{}, false, err
	}
	return Principal{Username: session.User.Username}, true, nil
}

func (a *SessionAuthenticator) SignIn(w http.ResponseWriter, r *http.Request, user *models.User) (Credentials, error) {
	key, err := newSessionKey()
	if err != nil {
		return Credentials{}, err
	}
	if err := a.store.InsertSession(r.Context(), &models.Session{Key: key, UserID: user.ID}); err != nil {
		return Credentials{}, err
	}
	return Credentials{SessionKey: key}, nil
}

func (a *SessionAuthenticator) SignOut(w http.ResponseWriter, r *http.Request) error {
	key := r.Header.Get("Authorization")
	if key == "" {
		return nil
	}
	return a.store.DeleteSessionsByKey(r.Context(), key)
}

// TokenAuthenticator accepts a signed access token from a cookie or a
// bearer header and falls back to the refresh cookie, re-issuing the
// access cookie when the refresh token is still registered.
type TokenAuthenticator struct {
	tokens        *TokenIssuer
	accessCookie  string
	refreshCookie string
	secure        bool
	maxAge        int
	logger        *slog.Logger
}

func NewTokenAuthenticator(tokens *TokenIssuer, cfg config.AuthConfig, logger *slog.Logger) *TokenAuthenticator {
	return &TokenAuthenticator{
		tokens:        tokens,
		accessCookie:  cfg.AccessCookie,
		refreshCookie: cfg.RefreshCookie,
		secure:        cfg.CookieSecure,
		maxAge:        int(cfg.CookieMaxAge.Seconds()),
		logger:        logger,
	}
}

func (a *TokenAuthenticator) Authenticate(w http.ResponseWriter, r *http.Request) (Principal, bool, error) {
	if access := a.accessToken(r); access != "" {
		if subject, ok := a.tokens.ValidateAccessToken(access); ok {
			return Principal{Username: subject}, true, nil
		}
		a.logger.Debug("access token rejected, trying refresh token")
	}

	refresh := cookieValue(r, a.refreshCookie)
	if refresh == "" {
		return Principal{}, false, nil
	}
	access, ok, err := a.tokens.RotateAccessToken(r.Context(), refresh)
	if err != nil || !ok {
		return Principal{}, false, err
	}
	subject, ok := a.tokens.ValidateAccessToken(access)
	if !ok {
		return Principal{}, false, nil
	}
	http.SetCookie(w, a.cookie(a.accessCookie, access))
	return Principal{Username: subject}, true, nil
}

func (a *TokenAuthenticator) SignIn(w http.ResponseWriter, r *http.Request, user *models.User) (Credentials, error) {
	access, err := a.tokens.IssueAccessToken(user)
	if err != nil {
		return Credentials{}, err
	}
	refresh, err := a.tokens.IssueRefreshToken(r.Context(), user)
	if err != nil {
		return Credentials{}, err
	}
	http.SetCookie(w, a.cookie(a.accessCookie, access))
	http.SetCookie(w, a.cookie(a.refreshCookie, refresh))
	return Credentials{}, nil
}

func (a *TokenAuthenticator) SignOut(w http.ResponseWriter, r *http.Request) error {
	if err := a.tokens.Revoke(r.Context(), cookieValue(r, a.refreshCookie)); err != nil {
		return err
	}
	for _, name := range []string{a.accessCookie, a.refreshCookie} {
		c := a.cookie(name, "")
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
	return nil
}

func (a *TokenAuthenticator) accessToken(r *http.Request) string {
	if v := cookieValue(r, a.accessCookie); v != "" {
		return v
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func (a *TokenAuthenticator) cookie(name, value string) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if a.secure {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   a.maxAge,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: sameSite,
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

type principalKey struct{}

// WithPrincipal stores p in the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the authenticated caller, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
