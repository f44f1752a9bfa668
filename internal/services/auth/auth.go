// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth implements login, logout, sign-up with email confirmation
// and password changes for every account kind.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"codeberg.org/oliverandrich/volunteerhub/internal/apperr"
	"codeberg.org/oliverandrich/volunteerhub/internal/models"
	"codeberg.org/oliverandrich/volunteerhub/internal/repository"
	"codeberg.org/oliverandrich/volunteerhub/internal/services/email"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials covers unknown email and wrong password alike.
	ErrInvalidCredentials = apperr.Unauthenticated("invalid email or password")
	// ErrNotConfirmed means sign-up confirmation is still outstanding.
	ErrNotConfirmed = apperr.Unauthenticated("account has not been confirmed")
	// ErrConfirmationExpired means the confirmation token has run out.
	ErrConfirmationExpired = apperr.Unauthenticated("confirmation link expired")
	// ErrConfirmationInvalid means no stored confirmation token matches.
	ErrConfirmationInvalid = apperr.Validation(apperr.FieldError{Field: "token", Message: "is invalid"})
	// ErrWrongPassword means the current password given on change is wrong.
	ErrWrongPassword = apperr.Validation(apperr.FieldError{Field: "currentPassword", Message: "is incorrect"})
	// ErrSignUpNotAllowed is returned for admins.
	ErrSignUpNotAllowed = apperr.Forbidden("this account kind cannot sign up")
)

// dummyHash is used for constant-time login to prevent timing attacks
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// Mailer sends the confirmation email.
type Mailer interface {
	SendConfirmation(ctx context.Context, acct models.Account, token string, validFor time.Duration) error
}

// Service handles login, logout, sign-up and password changes.
type Service struct {
	repo              *repository.Repository
	mailer            Mailer
	passwordValidator *PasswordValidator
	confirmationTTL   time.Duration
	bcryptCost        int
	now               func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithBcryptCost lowers the hashing cost, for tests.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.bcryptCost = cost
	}
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates an auth service. Confirmation tokens live for confirmationTTL.
func NewService(repo *repository.Repository, mailer Mailer, confirmationTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		repo:              repo,
		mailer:            mailer,
		passwordValidator: DefaultPasswordValidator(),
		confirmationTTL:   confirmationTTL,
		bcryptCost:        bcrypt.DefaultCost,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PasswordValidator returns the password validator for use by other services.
func (s *Service) PasswordValidator() *PasswordValidator {
	return s.passwordValidator
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// HashPassword hashes a password with the service's bcrypt cost.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Login authenticates an account of the given kind.
func (s *Service) Login(ctx context.Context, role models.Role, addr, password string) (models.Account, error) {
	addr = NormalizeEmail(addr)

	acct, err := s.repo.GetAccountByEmail(ctx, role, addr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform bcrypt comparison to prevent timing attacks
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.WarnContext(ctx, "login_failed", "role", role, "email", addr, "reason", "account_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, apperr.Internal(fmt.Errorf("failed to get account: %w", err))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.CredentialHash()), []byte(password)); err != nil {
		slog.WarnContext(ctx, "login_failed", "role", role, "email", addr, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	if c, ok := acct.(models.Confirmable); ok && !c.IsConfirmed() {
		slog.WarnContext(ctx, "login_failed", "role", role, "email", addr, "reason", "not_confirmed")
		return nil, ErrNotConfirmed
	}

	slog.InfoContext(ctx, "login_success", "role", role, "account_id", acct.AccountID())
	return acct, nil
}

// Logout moves the account's logout time forward, which invalidates every
// session issued so far.
func (s *Service) Logout(ctx context.Context, acct models.Account) error {
	if err := s.repo.SetLastLogout(ctx, acct.AccountRole(), acct.AccountID(), s.now()); err != nil {
		return apperr.Internal(fmt.Errorf("failed to record logout: %w", err))
	}
	slog.InfoContext(ctx, "logout", "role", acct.AccountRole(), "account_id", acct.AccountID())
	return nil
}

// SignUpParams holds the fields of a sign-up request. Organisation, Website
// and Phone only apply to project owners.
type SignUpParams struct {
	Email        string
	Name         string
	Password     string
	Organisation string
	Website      string
	Phone        string
}

// SignUp creates an unconfirmed user or project owner and emails the
// confirmation link.
func (s *Service) SignUp(ctx context.Context, role models.Role, params SignUpParams) (models.Account, error) {
	if role != models.RoleUser && role != models.RoleProjectOwner {
		return nil, ErrSignUpNotAllowed
	}

	params.Email = NormalizeEmail(params.Email)
	params.Name = strings.TrimSpace(params.Name)

	var fields apperr.Fields
	if _, err := mail.ParseAddress(params.Email); err != nil || params.Email == "" {
		fields.Add("email", "is not a valid email address")
	}
	if params.Name == "" {
		fields.Add("name", "can't be blank")
	}
	for _, msg := range s.passwordValidator.Validate(params.Password, params.Email, params.Name) {
		fields.Add("password", msg)
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	hash, err := s.HashPassword(params.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	identity := models.Identity{Email: params.Email, Name: params.Name, PasswordHash: hash}
	var acct models.Account
	switch role {
	case models.RoleUser:
		user := &models.User{Identity: identity}
		acct = user
		err = s.repo.CreateUser(ctx, user)
	default:
		owner := &models.ProjectOwner{
			Identity:     identity,
			Organisation: strings.TrimSpace(params.Organisation),
			Website:      strings.TrimSpace(params.Website),
			Phone:        strings.TrimSpace(params.Phone),
		}
		acct = owner
		err = s.repo.CreateProjectOwner(ctx, owner)
	}
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperr.Validation(apperr.FieldError{Field: "email", Message: "has already been taken"})
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to create account: %w", err))
	}

	if err := s.sendConfirmation(ctx, acct); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "signup_success", "role", role, "account_id", acct.AccountID())
	return acct, nil
}

// ResendConfirmation issues a fresh confirmation token for an unconfirmed
// account. Confirmed accounts are left alone.
func (s *Service) ResendConfirmation(ctx context.Context, role models.Role, addr string) error {
	acct, err := s.repo.GetAccountByEmail(ctx, role, NormalizeEmail(addr))
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.BadRequest("Email couldn't be found")
	}
	if err != nil {
		return apperr.Internal(err)
	}
	c, ok := acct.(models.Confirmable)
	if !ok || c.IsConfirmed() {
		return nil
	}
	return s.sendConfirmation(ctx, acct)
}

func (s *Service) sendConfirmation(ctx context.Context, acct models.Account) error {
	plaintext, hash, expiresAt, err := email.GenerateToken(s.now(), s.confirmationTTL)
	if err != nil {
		return apperr.Internal(err)
	}

	err = s.repo.SaveToken(ctx, &models.AccountToken{
		Role:      acct.AccountRole(),
		AccountID: acct.AccountID(),
		Purpose:   models.PurposeConfirmation,
		TokenHash: hash,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return apperr.Internal(fmt.Errorf("failed to store confirmation token: %w", err))
	}

	if err := s.mailer.SendConfirmation(ctx, acct, plaintext, s.confirmationTTL); err != nil {
		return apperr.Internal(fmt.Errorf("failed to send confirmation email: %w", err))
	}
	return nil
}

// Confirm consumes a confirmation token and marks the account confirmed.
func (s *Service) Confirm(ctx context.Context, role models.Role, addr, token string) error {
	acct, err := s.repo.GetAccountByEmail(ctx, role, NormalizeEmail(addr))
	if errors.Is(err, repository.ErrNotFound) {
		return ErrConfirmationInvalid
	}
	if err != nil {
		return apperr.Internal(err)
	}

	if err := s.consumeConfirmation(ctx, acct, token); err != nil {
		return err
	}

	if err := s.repo.MarkConfirmed(ctx, role, acct.AccountID(), s.now()); err != nil {
		return apperr.Internal(fmt.Errorf("failed to confirm account: %w", err))
	}

	slog.InfoContext(ctx, "account_confirmed", "role", role, "account_id", acct.AccountID())
	return nil
}

// consumeConfirmation checks token against the stored hash and deletes it.
// An expired token is deleted as well.
func (s *Service) consumeConfirmation(ctx context.Context, acct models.Account, token string) error {
	const purpose = models.PurposeConfirmation

	stored, err := s.repo.GetToken(ctx, acct.AccountRole(), acct.AccountID(), purpose)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrConfirmationInvalid
	}
	if err != nil {
		return apperr.Internal(err)
	}

	if subtle.ConstantTimeCompare([]byte(stored.TokenHash), []byte(email.HashToken(token))) != 1 {
		return ErrConfirmationInvalid
	}
	if stored.Expired(s.now()) {
		if err := s.repo.DeleteToken(ctx, acct.AccountRole(), acct.AccountID(), purpose); err != nil {
			slog.WarnContext(ctx, "expired_token_cleanup_failed",
				"role", acct.AccountRole(), "account_id", acct.AccountID(), "purpose", purpose, "error", err)
		}
		return ErrConfirmationExpired
	}

	if err := s.repo.DeleteToken(ctx, acct.AccountRole(), acct.AccountID(), purpose); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// ChangePassword replaces the password of a signed-in account after
// checking the current one. It returns the reloaded account, whose new
// credential state the caller must sign a fresh session with.
func (s *Service) ChangePassword(ctx context.Context, acct models.Account, currentPassword, newPassword string) (models.Account, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(acct.CredentialHash()), []byte(currentPassword)); err != nil {
		return nil, ErrWrongPassword
	}
	if err := s.passwordValidator.Check("password", newPassword, acct.AccountEmail(), acct.AccountName()); err != nil {
		return nil, err
	}

	if err := s.SetPassword(ctx, acct, newPassword); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetAccountByID(ctx, acct.AccountRole(), acct.AccountID())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return updated, nil
}

// SetPassword stores a new password without further checks.
func (s *Service) SetPassword(ctx context.Context, acct models.Account, password string) error {
	hash, err := s.HashPassword(password)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.repo.UpdatePassword(ctx, acct.AccountRole(), acct.AccountID(), hash); err != nil {
		return apperr.Internal(fmt.Errorf("failed to update password: %w", err))
	}
	slog.InfoContext(ctx, "password_changed", "role", acct.AccountRole(), "account_id", acct.AccountID())
	return nil
}

// EnsureAdmin creates an admin, or resets the password of an existing one
// with the same email. It reports whether a new admin was created.
func (s *Service) EnsureAdmin(ctx context.Context, addr, name, password string) (bool, error) {
	addr = NormalizeEmail(addr)
	if _, err := mail.ParseAddress(addr); err != nil {
		return false, apperr.Validation(apperr.FieldError{Field: "email", Message: "is not a valid email address"})
	}
	if err := s.passwordValidator.Check("password", password, addr, name); err != nil {
		return false, err
	}

	existing, err := s.repo.GetAccountByEmail(ctx, models.RoleAdmin, addr)
	switch {
	case err == nil:
		return false, s.SetPassword(ctx, existing, password)
	case !errors.Is(err, repository.ErrNotFound):
		return false, fmt.Errorf("failed to get admin: %w", err)
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return false, err
	}
	admin := &models.Admin{Identity: models.Identity{Email: addr, Name: strings.TrimSpace(name), PasswordHash: hash}}
	if err := s.repo.CreateAdmin(ctx, admin); err != nil {
		return false, fmt.Errorf("failed to create admin: %w", err)
	}

	slog.InfoContext(ctx, "admin_created", "account_id", admin.ID, "email", addr)
	return true, nil
}
