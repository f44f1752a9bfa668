// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeberg.org/oliverandrich/volunteerhub/internal/apperr"
	"codeberg.org/oliverandrich/volunteerhub/internal/models"
	"codeberg.org/oliverandrich/volunteerhub/internal/services/reset"
	"github.com/labstack/echo/v4"
)

// resetSession is the payload of the scoped reset cookie.
type resetSession struct {
	Email string
	Token string
}

// resetCookiePath scopes the reset cookie to the completion endpoint.
func resetCookiePath(role models.Role) string {
	return "/api/v1/" + role.PathSegment() + "/password/reset"
}

// RequestReset mails a reset link to an existing account.
func (h *Handlers) RequestReset(role models.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req EmailRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		if err := h.reset.RequestReset(c.Request().Context(), role, req.Email); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// EditReset is the landing endpoint of the emailed link. A valid token is
// moved out of the URL into a signed cookie scoped to the completion
// endpoint and the browser is sent on to the frontend's reset form.
func (h *Handlers) EditReset(role models.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		addr := c.QueryParam("email")
		token := c.QueryParam("token")

		_, err := h.reset.VerifyReset(c.Request().Context(), role, addr, token)
		if err != nil {
			return h.redirectResetError(c, role, err)
		}

		encoded, err := h.resetCookie.Encode(h.cfg.Reset.CookieName, resetSession{Email: addr, Token: token})
		if err != nil {
			return apperr.Internal(err)
		}
		c.SetCookie(&http.Cookie{
			Name:     h.cfg.Reset.CookieName,
			Value:    encoded,
			Path:     resetCookiePath(role),
			MaxAge:   int(h.cfg.Reset.TokenTTL.Seconds()),
			HttpOnly: true,
			Secure:   h.cfg.Session.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
		return c.Redirect(http.StatusFound, h.resetFormURL(role, ""))
	}
}

func (h *Handlers) redirectResetError(c echo.Context, role models.Role, err error) error {
	var reason string
	switch {
	case errors.Is(err, reset.ErrExpired):
		reason = "expired"
	case errors.Is(err, reset.ErrInvalidToken):
		reason = "invalid"
	default:
		return err
	}
	slog.InfoContext(c.Request().Context(), "password_reset_link_rejected", "role", role, "reason", reason)
	return c.Redirect(http.StatusFound, h.resetFormURL(role, reason))
}

func (h *Handlers) resetFormURL(role models.Role, reason string) string {
	u := strings.TrimRight(h.cfg.Server.FrontendURL, "/") + "/" + role.PathSegment() + "/password/reset"
	if reason != "" {
		u += "?" + url.Values{"error": {reason}}.Encode()
	}
	return u
}

// PasswordRequest carries a new password.
type PasswordRequest struct {
	Password string `json:"password"`
}

// CompleteReset sets the new password. The token comes from the scoped
// reset cookie, never from the request body.
func (h *Handlers) CompleteReset(role models.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req PasswordRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		cookie, err := c.Cookie(h.cfg.Reset.CookieName)
		if err != nil {
			return reset.ErrExpired
		}
		var sess resetSession
		if err := h.resetCookie.Decode(h.cfg.Reset.CookieName, cookie.Value, &sess); err != nil {
			h.clearResetCookie(c, role)
			return reset.ErrExpired.Wrap(err)
		}

		err = h.reset.CompleteReset(c.Request().Context(), role, sess.Email, sess.Token, req.Password)
		if err != nil {
			// Keep the cookie while the user can still fix the password.
			if apperr.KindOf(err) != apperr.KindValidation || errors.Is(err, reset.ErrInvalidToken) {
				h.clearResetCookie(c, role)
			}
			return err
		}

		h.clearResetCookie(c, role)
		return c.NoContent(http.StatusNoContent)
	}
}

func (h *Handlers) clearResetCookie(c echo.Context, role models.Role) {
	c.SetCookie(&http.Cookie{
		Name:     h.cfg.Reset.CookieName,
		Value:    "",
		Path:     resetCookiePath(role),
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
