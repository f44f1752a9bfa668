// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package session_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"codeberg.org/oliverandrich/volunteerhub/internal/config"
	"codeberg.org/oliverandrich/volunteerhub/internal/models"
	"codeberg.org/oliverandrich/volunteerhub/internal/repository"
	"codeberg.org/oliverandrich/volunteerhub/internal/services/session"
	"codeberg.org/oliverandrich/volunteerhub/internal/testutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig() *config.SessionConfig {
	return &config.SessionConfig{
		Secret:     strings.Repeat("k", config.MinSecretLength),
		Duration:   time.Hour,
		CookieName: "session_token",
		CSRFHeader: "csrf-token",
	}
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newIssuer(t *testing.T) (*session.Issuer, *repository.Repository, *clock) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	c := &clock{t: time.Now()}
	return session.NewIssuer(newTestConfig(), repo, session.WithClock(c.Now)), repo, c
}

func TestIssueAndValidate(t *testing.T) {
	issuer, repo, _ := newIssuer(t)
	admin := testutil.NewTestAdmin(t, repo, "admin@example.com")

	token, err := issuer.Issue(admin, "csrf-value")
	require.NoError(t, err)

	acct, claims, err := issuer.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, acct.AccountID())
	assert.Equal(t, models.RoleAdmin, acct.AccountRole())
	assert.Equal(t, "csrf-value", claims.CSRF)
}

func TestDecode_DoesNotVerify(t *testing.T) {
	issuer, repo, _ := newIssuer(t)
	user := testutil.NewTestUser(t, repo, "user@example.com")

	token, err := issuer.Issue(user, "abc")
	require.NoError(t, err)

	claims, err := issuer.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.AccountID)
	assert.Equal(t, models.RoleUser, claims.Role)
	assert.Equal(t, "abc", claims.CSRF)

	// A token signed with a foreign key still decodes
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{
		AccountID: user.ID, Role: models.RoleAdmin, CSRF: "x",
	}).SignedString([]byte("attacker"))
	require.NoError(t, err)
	claims, err = issuer.Decode(forged)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestDecode_Malformed(t *testing.T) {
	issuer, _, _ := newIssuer(t)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := issuer.Decode(token)
		assert.ErrorIs(t, err, session.ErrMalformed, token)
	}

	noRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{AccountID: 1}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = issuer.Decode(noRole)
	assert.ErrorIs(t, err, session.ErrMalformed)
}

func TestValidate_PasswordChangeInvalidates(t *testing.T) {
	issuer, repo, _ := newIssuer(t)
	ctx := context.Background()
	owner := testutil.NewTestProjectOwner(t, repo, "owner@example.com")

	token, err := issuer.Issue(owner, "csrf")
	require.NoError(t, err)

	require.NoError(t, repo.UpdatePassword(ctx, models.RoleProjectOwner, owner.ID, testutil.HashPassword(t, "another password")))

	_, _, err = issuer.Validate(ctx, token)
	assert.ErrorIs(t, err, session.ErrInvalid)
}

func TestValidate_LogoutInvalidates(t *testing.T) {
	issuer, repo, c := newIssuer(t)
	ctx := context.Background()
	user := testutil.NewTestUser(t, repo, "user@example.com")

	token, err := issuer.Issue(user, "csrf")
	require.NoError(t, err)

	require.NoError(t, repo.SetLastLogout(ctx, models.RoleUser, user.ID, c.Now()))

	_, _, err = issuer.Validate(ctx, token)
	assert.ErrorIs(t, err, session.ErrInvalid)

	// Tokens issued after the logout validate again
	fresh, err := repo.GetAccountByID(ctx, models.RoleUser, user.ID)
	require.NoError(t, err)
	token, err = issuer.Issue(fresh, "csrf")
	require.NoError(t, err)
	_, _, err = issuer.Validate(ctx, token)
	assert.NoError(t, err)
}

func TestValidate_Expired(t *testing.T) {
	issuer, repo, c := newIssuer(t)
	admin := testutil.NewTestAdmin(t, repo, "admin@example.com")

	token, err := issuer.Issue(admin, "csrf")
	require.NoError(t, err)

	c.t = c.t.Add(time.Hour + time.Minute)

	_, _, err = issuer.Validate(context.Background(), token)
	assert.ErrorIs(t, err, session.ErrExpired)
}

func TestValidate_UnknownAccount(t *testing.T) {
	issuer, repo, _ := newIssuer(t)
	admin := testutil.NewTestAdmin(t, repo, "admin@example.com")

	token, err := issuer.Issue(admin, "csrf")
	require.NoError(t, err)

	_, err = repo.DB().Exec(`DELETE FROM admins`)
	require.NoError(t, err)

	_, _, err = issuer.Validate(context.Background(), token)
	assert.ErrorIs(t, err, session.ErrInvalid)
}

func TestValidate_RoleClaimMustMatchSigner(t *testing.T) {
	issuer, repo, _ := newIssuer(t)
	ctx := context.Background()

	// Same id in two account tables
	user := testutil.NewTestUser(t, repo, "user@example.com")
	admin := testutil.NewTestAdmin(t, repo, "admin@example.com")
	require.Equal(t, user.ID, admin.ID)

	token, err := issuer.Issue(user, "csrf")
	require.NoError(t, err)

	// Re-sign the user's claims as an admin token with a guessed key
	claims, err := issuer.Decode(token)
	require.NoError(t, err)
	claims.Role = models.RoleAdmin
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("guess"))
	require.NoError(t, err)

	_, _, err = issuer.Validate(ctx, forged)
	assert.ErrorIs(t, err, session.ErrInvalid)
}

func TestValidate_RejectsOtherAlgorithms(t *testing.T) {
	issuer, repo, _ := newIssuer(t)
	admin := testutil.NewTestAdmin(t, repo, "admin@example.com")

	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, session.Claims{
		AccountID: admin.ID, Role: models.RoleAdmin, CSRF: "x",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, _, err = issuer.Validate(context.Background(), token)
	assert.ErrorIs(t, err, session.ErrInvalid)
}

func TestNewCSRFToken(t *testing.T) {
	a, err := session.NewCSRFToken()
	require.NoError(t, err)
	b, err := session.NewCSRFToken()
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}

func TestCookies(t *testing.T) {
	issuer, _, _ := newIssuer(t)

	c := issuer.Cookie("token")
	assert.Equal(t, "session_token", c.Name)
	assert.Equal(t, "token", c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 3600, c.MaxAge)

	cleared := issuer.ClearCookie()
	assert.Equal(t, "session_token", cleared.Name)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)
}
