// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"codeberg.org/oliverandrich/volunteerhub/internal/apperr"
	"codeberg.org/oliverandrich/volunteerhub/internal/auth"
	"codeberg.org/oliverandrich/volunteerhub/internal/models"
	"codeberg.org/oliverandrich/volunteerhub/internal/services/session"
	"github.com/labstack/echo/v4"
)

var (
	// ErrNoSession means the session cookie is missing.
	ErrNoSession = apperr.Unauthenticated("missing session")
	// ErrInvalidSession means the token failed to decode or validate.
	ErrInvalidSession = apperr.Unauthenticated("invalid session")
	// ErrCSRFMismatch means the anti-forgery header is absent or differs from the token claim.
	ErrCSRFMismatch = apperr.Forbidden("anti-forgery token mismatch")
	// ErrRoleNotAllowed means the session belongs to a role the route does not admit.
	ErrRoleNotAllowed = apperr.Forbidden("role not allowed")
)

// SessionValidator is the part of the session issuer the guard needs.
type SessionValidator interface {
	CookieName() string
	Decode(token string) (*session.Claims, error)
	Validate(ctx context.Context, token string) (models.Account, *session.Claims, error)
}

// RequireRole admits requests carrying a valid session of one of roles.
// The checks run in a fixed order: session cookie present (401), token
// decodes (401), anti-forgery header equals the embedded claim (403), role
// allowed (403), signature and expiry under the account's current key (401).
func RequireRole(sessions SessionValidator, csrfHeader string, roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(sessions.CookieName())
			if err != nil || cookie.Value == "" {
				return ErrNoSession
			}

			claims, err := sessions.Decode(cookie.Value)
			if err != nil {
				return ErrInvalidSession.Wrap(err)
			}

			header := c.Request().Header.Get(csrfHeader)
			if header == "" || subtle.ConstantTimeCompare([]byte(header), []byte(claims.CSRF)) != 1 {
				return ErrCSRFMismatch
			}

			if !slices.Contains(roles, claims.Role) {
				return ErrRoleNotAllowed
			}

			acct, verified, err := sessions.Validate(c.Request().Context(), cookie.Value)
			if err != nil {
				slog.DebugContext(c.Request().Context(), "session_rejected", "role", claims.Role, "account_id", claims.AccountID, "error", err)
				return ErrInvalidSession.Wrap(err)
			}

			c.SetRequest(c.Request().WithContext(auth.WithAccount(c.Request().Context(), acct, verified)))
			return next(c)
		}
	}
}

// LoadAccount attaches the session account when a valid session cookie is
// present and continues anonymously otherwise. It only serves safe methods
// and therefore skips the anti-forgery check.
func LoadAccount(sessions SessionValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet && req.Method != http.MethodHead {
				return next(c)
			}
			cookie, err := c.Cookie(sessions.CookieName())
			if err != nil || cookie.Value == "" {
				return next(c)
			}
			acct, claims, err := sessions.Validate(req.Context(), cookie.Value)
			if err != nil {
				if !errors.Is(err, session.ErrExpired) {
					slog.DebugContext(req.Context(), "optional_session_ignored", "error", err)
				}
				return next(c)
			}
			c.SetRequest(req.WithContext(auth.WithAccount(req.Context(), acct, claims)))
			return next(c)
		}
	}
}
