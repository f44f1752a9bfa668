// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/oliverandrich/volunteerhub/internal/apperr"
	"codeberg.org/oliverandrich/volunteerhub/internal/auth"
	"codeberg.org/oliverandrich/volunteerhub/internal/models"
	authsvc "codeberg.org/oliverandrich/volunteerhub/internal/services/auth"
	"codeberg.org/oliverandrich/volunteerhub/internal/services/session"
	"github.com/labstack/echo/v4"
)

// AccountResponse wraps an account in the response body.
type AccountResponse struct {
	User models.Account `json:"user"`
}

// LoginRequest is the request body for signing in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login signs an account of role in. The session token goes into the
// httpOnly cookie and the anti-forgery token into the response header.
func (h *Handlers) Login(role models.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req LoginRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		acct, err := h.auth.Login(c.Request().Context(), role, req.Email, req.Password)
		if err != nil {
			return err
		}
		if err := h.startSession(c, acct); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, AccountResponse{User: acct})
	}
}

// startSession issues a session for acct with a fresh anti-forgery token.
func (h *Handlers) startSession(c echo.Context, acct models.Account) error {
	csrf, err := session.NewCSRFToken()
	if err != nil {
		return apperr.Internal(err)
	}
	token, err := h.sessions.Issue(acct, csrf)
	if err != nil {
		return apperr.Internal(err)
	}
	c.SetCookie(h.sessions.Cookie(token))
	c.Response().Header().Set(h.cfg.Session.CSRFHeader, csrf)
	return nil
}

// Logout ends every session of the signed-in account.
func (h *Handlers) Logout(c echo.Context) error {
	acct := auth.GetAccount(c.Request().Context())
	if err := h.auth.Logout(c.Request().Context(), acct); err != nil {
		return err
	}
	c.SetCookie(h.sessions.ClearCookie())
	return c.NoContent(http.StatusNoContent)
}

// Me returns the signed-in account.
func (h *Handlers) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, AccountResponse{User: auth.GetAccount(c.Request().Context())})
}

// ChangePasswordRequest is the request body for changing the password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	Password        string `json:"password"`
}

// ChangePassword replaces the password of the signed-in account. The old
// session stops validating, so a new one is issued in the same response.
func (h *Handlers) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	updated, err := h.auth.ChangePassword(ctx, auth.GetAccount(ctx), req.CurrentPassword, req.Password)
	if err != nil {
		return err
	}
	if err := h.startSession(c, updated); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AccountResponse{User: updated})
}

// SignUpRequest is the request body for creating a user or project owner.
type SignUpRequest struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Password     string `json:"password"`
	Organisation string `json:"organisation"`
	Website      string `json:"website"`
	Phone        string `json:"phone"`
}

// SignUp registers an unconfirmed account of role and emails the
// confirmation link.
func (h *Handlers) SignUp(role models.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req SignUpRequest
		if err := bind(c, &req); err != nil {
			return err
		}

		acct, err := h.auth.SignUp(c.Request().Context(), role, authsvc.SignUpParams{
			Email:        req.Email,
			Name:         req.Name,
			Password:     req.Password,
			Organisation: req.Organisation,
			Website:      req.Website,
			Phone:        req.Phone,
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, AccountResponse{User: acct})
	}
}

// TokenRequest carries an email and a single-use token.
type TokenRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// Confirm consumes a sign-up confirmation token.
func (h *Handlers) Confirm(role models.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req TokenRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		if err := h.auth.Confirm(c.Request().Context(), role, req.Email, req.Token); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// EmailRequest carries only an email address.
type EmailRequest struct {
	Email string `json:"email"`
}

// ResendConfirmation emails a fresh confirmation link.
func (h *Handlers) ResendConfirmation(role models.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req EmailRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		if err := h.auth.ResendConfirmation(c.Request().Context(), role, req.Email); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}
