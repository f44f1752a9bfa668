// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package reset implements the password reset flow: a single-use,
// time-limited token is mailed out and later exchanged for a new password.
package reset

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/volunteerhub/internal/apperr"
	"codeberg.org/oliverandrich/volunteerhub/internal/models"
	"codeberg.org/oliverandrich/volunteerhub/internal/repository"
	"codeberg.org/oliverandrich/volunteerhub/internal/services/auth"
	"codeberg.org/oliverandrich/volunteerhub/internal/services/email"
)

var (
	// ErrEmailNotFound is disclosed to the client on purpose.
	ErrEmailNotFound = apperr.BadRequest("Email couldn't be found")
	// ErrExpired means the reset token or its cookie has run out.
	ErrExpired = apperr.Unauthenticated("reset session expired")
	// ErrInvalidToken means no stored token matches.
	ErrInvalidToken = apperr.Validation(apperr.FieldError{Field: "token", Message: "is invalid"})
	// ErrRoleNotResettable is returned for admins.
	ErrRoleNotResettable = apperr.Forbidden("this account kind cannot reset its password")
)

// Mailer sends the reset email.
type Mailer interface {
	SendPasswordReset(ctx context.Context, acct models.Account, token string, validFor time.Duration) error
}

// Passwords validates and stores new passwords.
type Passwords interface {
	PasswordValidator() *auth.PasswordValidator
	SetPassword(ctx context.Context, acct models.Account, password string) error
}

// Service runs the password reset flow for users and project owners.
type Service struct {
	repo      *repository.Repository
	mailer    Mailer
	passwords Passwords
	ttl       time.Duration
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a reset service whose tokens live for ttl.
func NewService(repo *repository.Repository, mailer Mailer, passwords Passwords, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		mailer:    mailer,
		passwords: passwords,
		ttl:       ttl,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func resettable(role models.Role) bool {
	return role == models.RoleUser || role == models.RoleProjectOwner
}

// RequestReset stores a fresh reset token for the account and mails it.
// A previous outstanding token stops working.
func (s *Service) RequestReset(ctx context.Context, role models.Role, addr string) error {
	if !resettable(role) {
		return ErrRoleNotResettable
	}

	acct, err := s.repo.GetAccountByEmail(ctx, role, auth.NormalizeEmail(addr))
	if errors.Is(err, repository.ErrNotFound) {
		slog.InfoContext(ctx, "password_reset_unknown_email", "role", role)
		return ErrEmailNotFound
	}
	if err != nil {
		return apperr.Internal(err)
	}

	plaintext, hash, expiresAt, err := email.GenerateToken(s.now(), s.ttl)
	if err != nil {
		return apperr.Internal(err)
	}

	err = s.repo.SaveToken(ctx, &models.AccountToken{
		Role:      role,
		AccountID: acct.AccountID(),
		Purpose:   models.PurposePasswordReset,
		TokenHash: hash,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return apperr.Internal(fmt.Errorf("failed to store reset token: %w", err))
	}

	if err := s.mailer.SendPasswordReset(ctx, acct, plaintext, s.ttl); err != nil {
		return apperr.Internal(fmt.Errorf("failed to send reset email: %w", err))
	}

	slog.InfoContext(ctx, "password_reset_requested", "role", role, "account_id", acct.AccountID())
	return nil
}

// VerifyReset checks a token without consuming it.
func (s *Service) VerifyReset(ctx context.Context, role models.Role, addr, token string) (models.Account, error) {
	acct, err := s.verify(ctx, role, addr, token)
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// verify returns the account even when the token expired, so the caller
// can clean up.
func (s *Service) verify(ctx context.Context, role models.Role, addr, token string) (models.Account, error) {
	if !resettable(role) {
		return nil, ErrRoleNotResettable
	}

	acct, err := s.repo.GetAccountByEmail(ctx, role, auth.NormalizeEmail(addr))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	stored, err := s.repo.GetToken(ctx, role, acct.AccountID(), models.PurposePasswordReset)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if subtle.ConstantTimeCompare([]byte(stored.TokenHash), []byte(email.HashToken(token))) != 1 {
		return nil, ErrInvalidToken
	}
	if stored.Expired(s.now()) {
		return acct, ErrExpired
	}
	return acct, nil
}

// CompleteReset sets a new password if token is valid, then deletes the
// token. Every session of the account stops validating.
func (s *Service) CompleteReset(ctx context.Context, role models.Role, addr, token, newPassword string) error {
	acct, err := s.verify(ctx, role, addr, token)
	if errors.Is(err, ErrExpired) {
		if derr := s.repo.DeleteToken(ctx, role, acct.AccountID(), models.PurposePasswordReset); derr != nil {
			slog.WarnContext(ctx, "expired_token_cleanup_failed",
				"role", role, "account_id", acct.AccountID(), "purpose", models.PurposePasswordReset, "error", derr)
		}
	}
	if err != nil {
		return err
	}

	if err := s.passwords.PasswordValidator().Check("password", newPassword, acct.AccountEmail(), acct.AccountName()); err != nil {
		return err
	}

	if err := s.passwords.SetPassword(ctx, acct, newPassword); err != nil {
		return err
	}

	if err := s.repo.DeleteToken(ctx, role, acct.AccountID(), models.PurposePasswordReset); err != nil {
		return apperr.Internal(err)
	}

	slog.InfoContext(ctx, "password_reset_completed", "role", role, "account_id", acct.AccountID())
	return nil
}
