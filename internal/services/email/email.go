// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email composes and dispatches the out-of-band messages of the
// confirmation and password reset flows.
package email

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"codeberg.org/oliverandrich/volunteerhub/internal/i18n"
	"codeberg.org/oliverandrich/volunteerhub/internal/models"
)

// TokenLength is the number of random bytes for out-of-band tokens.
const TokenLength = 32

// Service renders emails and hands them to a Mailer.
type Service struct {
	mailer      Mailer
	baseURL     string
	frontendURL string
}

// NewService creates a new email service. Reset links point at the API,
// which moves the token into a cookie before redirecting to the frontend.
// Confirmation links point at the frontend directly.
func NewService(mailer Mailer, baseURL, frontendURL string) *Service {
	return &Service{
		mailer:      mailer,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		frontendURL: strings.TrimSuffix(frontendURL, "/"),
	}
}

// GenerateToken generates a new single-use token valid for ttl from now.
// Returns (plaintext token, SHA256 hash for storage, expiry time, error).
func GenerateToken(now time.Time, ttl time.Duration) (string, string, time.Time, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to generate random bytes: %w", err)
	}

	plaintext := hex.EncodeToString(bytes)
	return plaintext, HashToken(plaintext), now.Add(ttl), nil
}

// HashToken computes the SHA256 hash of a token.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ConfirmationURL is the frontend page that completes sign-up.
func (s *Service) ConfirmationURL(role models.Role, addr, token string) string {
	q := url.Values{"email": {addr}, "token": {token}}
	return fmt.Sprintf("%s/%s/confirmation?%s", s.frontendURL, role.PathSegment(), q.Encode())
}

// PasswordResetURL is the API link that starts the reset session.
func (s *Service) PasswordResetURL(role models.Role, addr, token string) string {
	q := url.Values{"email": {addr}, "token": {token}}
	return fmt.Sprintf("%s/api/v1/%s/password/reset/edit?%s", s.baseURL, role.PathSegment(), q.Encode())
}

// SendConfirmation sends the sign-up confirmation email.
func (s *Service) SendConfirmation(ctx context.Context, acct models.Account, token string, validFor time.Duration) error {
	subject := i18n.T(ctx, "email_confirmation_subject")
	body := i18n.TData(ctx, "email_confirmation_body", map[string]any{
		"Name":       displayName(acct),
		"ConfirmURL": s.ConfirmationURL(acct.AccountRole(), acct.AccountEmail(), token),
		"ValidFor":   validFor.String(),
	})
	return s.mailer.Send(ctx, Message{To: acct.AccountEmail(), Subject: subject, Body: body})
}

// SendPasswordReset sends the password reset email.
func (s *Service) SendPasswordReset(ctx context.Context, acct models.Account, token string, validFor time.Duration) error {
	subject := i18n.T(ctx, "email_password_reset_subject")
	body := i18n.TData(ctx, "email_password_reset_body", map[string]any{
		"Name":     displayName(acct),
		"ResetURL": s.PasswordResetURL(acct.AccountRole(), acct.AccountEmail(), token),
		"ValidFor": validFor.String(),
	})
	return s.mailer.Send(ctx, Message{To: acct.AccountEmail(), Subject: subject, Body: body})
}

func displayName(acct models.Account) string {
	if name := acct.AccountName(); name != "" {
		return name
	}
	return acct.AccountEmail()
}
