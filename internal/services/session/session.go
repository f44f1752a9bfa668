// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package session issues and validates the signed session tokens carried in
// the session cookie.
//
// Tokens are HS256 JWTs. The signing key is derived per account from the
// global secret, the account's current password hash and its last logout
// time, so a password change or a logout invalidates every token issued
// before it without a revocation list.
package session

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"codeberg.org/oliverandrich/volunteerhub/internal/config"
	"codeberg.org/oliverandrich/volunteerhub/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed means the token cannot be decoded.
	ErrMalformed = errors.New("malformed session token")
	// ErrExpired means the token is past its expiry.
	ErrExpired = errors.New("session token expired")
	// ErrInvalid means the signature does not match the account's current key.
	ErrInvalid = errors.New("invalid session token")
)

// csrfTokenLength is the number of random bytes in an anti-forgery token.
const csrfTokenLength = 32

// AccountStore looks up the account a token refers to.
type AccountStore interface {
	GetAccountByID(ctx context.Context, role models.Role, id int64) (models.Account, error)
}

// Claims is the payload of a session token.
type Claims struct {
	AccountID int64       `json:"aid"`
	Role      models.Role `json:"role"`
	CSRF      string      `json:"csrf"`
	jwt.RegisteredClaims
}

// Issuer signs and validates session tokens.
type Issuer struct {
	secret   []byte
	duration time.Duration
	cookie   string
	secure   bool
	accounts AccountStore
	now      func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

// NewIssuer creates an issuer for cfg.
func NewIssuer(cfg *config.SessionConfig, accounts AccountStore, opts ...Option) *Issuer {
	i := &Issuer{
		secret:   []byte(cfg.Secret),
		duration: cfg.Duration,
		cookie:   cfg.CookieName,
		secure:   cfg.CookieSecure,
		accounts: accounts,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Duration returns how long issued tokens stay valid.
func (i *Issuer) Duration() time.Duration {
	return i.duration
}

// Issue signs a token for acct that embeds csrf.
func (i *Issuer) Issue(acct models.Account, csrf string) (string, error) {
	now := i.now()
	claims := Claims{
		AccountID: acct.AccountID(),
		Role:      acct.AccountRole(),
		CSRF:      csrf,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(acct.AccountID(), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.duration)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.signingKey(acct))
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return token, nil
}

// Decode reads the claims of token without verifying the signature. Only
// use the result for cheap pre-checks before Validate.
func (i *Issuer) Decode(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if claims.AccountID == 0 || !claims.Role.Valid() {
		return nil, ErrMalformed
	}
	return claims, nil
}

// Validate verifies token against the current signing key of the account
// it names and returns that account.
func (i *Issuer) Validate(ctx context.Context, token string) (models.Account, *Claims, error) {
	unverified, err := i.Decode(token)
	if err != nil {
		return nil, nil, err
	}

	acct, err := i.accounts.GetAccountByID(ctx, unverified.Role, unverified.AccountID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: account lookup: %w", ErrInvalid, err)
	}

	claims := &Claims{}
	_, err = jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return i.signingKey(acct), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, nil, ErrExpired
	case err != nil:
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if claims.AccountID != acct.AccountID() || claims.Role != acct.AccountRole() {
		return nil, nil, ErrInvalid
	}
	return acct, claims, nil
}

// signingKey derives the per-account key from the global secret and the
// account's current credential state.
func (i *Issuer) signingKey(acct models.Account) []byte {
	var logout int64
	if t := acct.LastLogout(); t != nil {
		logout = t.UnixMilli()
	}

	mac := hmac.New(sha256.New, i.secret)
	fmt.Fprintf(mac, "%s|%d|%s|%d", acct.AccountRole(), acct.AccountID(), acct.CredentialHash(), logout)
	return mac.Sum(nil)
}

// NewCSRFToken returns a random anti-forgery token.
func NewCSRFToken() (string, error) {
	b := make([]byte, csrfTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating csrf token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Cookie wraps token in the session cookie.
func (i *Issuer) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     i.cookie,
		Value:    token,
		Path:     "/",
		Expires:  i.now().Add(i.duration),
		MaxAge:   int(i.duration.Seconds()),
		HttpOnly: true,
		Secure:   i.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie returns a cookie that removes the session cookie.
func (i *Issuer) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     i.cookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   i.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// CookieName returns the name of the session cookie.
func (i *Issuer) CookieName() string {
	return i.cookie
}
