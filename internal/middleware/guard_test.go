// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codeberg.org/oliverandrich/volunteerhub/internal/apperr"
	"codeberg.org/oliverandrich/volunteerhub/internal/auth"
	"codeberg.org/oliverandrich/volunteerhub/internal/config"
	"codeberg.org/oliverandrich/volunteerhub/internal/middleware"
	"codeberg.org/oliverandrich/volunteerhub/internal/models"
	"codeberg.org/oliverandrich/volunteerhub/internal/repository"
	"codeberg.org/oliverandrich/volunteerhub/internal/services/session"
	"codeberg.org/oliverandrich/volunteerhub/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const csrfHeader = "csrf-token"

type guardFixture struct {
	issuer *session.Issuer
	repo   *repository.Repository
	admin  *models.Admin
	owner  *models.ProjectOwner
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	cfg := &config.SessionConfig{
		Secret:     strings.Repeat("k", config.MinSecretLength),
		Duration:   time.Hour,
		CookieName: "session_token",
		CSRFHeader: csrfHeader,
	}
	return &guardFixture{
		issuer: session.NewIssuer(cfg, repo),
		repo:   repo,
		admin:  testutil.NewTestAdmin(t, repo, "admin@example.com"),
		owner:  testutil.NewTestProjectOwner(t, repo, "owner@example.com"),
	}
}

func (f *guardFixture) token(t *testing.T, acct models.Account, csrf string) string {
	t.Helper()
	token, err := f.issuer.Issue(acct, csrf)
	require.NoError(t, err)
	return token
}

// run passes a request through mw and returns the account the protected
// handler saw, if it ran.
func run(t *testing.T, mw echo.MiddlewareFunc, cookie, header string) (models.Account, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admins/logout", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "session_token", Value: cookie})
	}
	if header != "" {
		req.Header.Set(csrfHeader, header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var seen models.Account
	err := mw(func(c echo.Context) error {
		seen = auth.GetAccount(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	})(c)
	return seen, err
}

func TestRequireRole(t *testing.T) {
	f := newGuardFixture(t)
	guard := middleware.RequireRole(f.issuer, csrfHeader, models.RoleAdmin)
	adminToken := f.token(t, f.admin, "csrf-admin")

	tests := []struct {
		name   string
		cookie string
		header string
		kind   apperr.Kind
	}{
		{"missing cookie", "", "csrf-admin", apperr.KindUnauthenticated},
		{"malformed token", "not-a-jwt", "csrf-admin", apperr.KindUnauthenticated},
		{"missing header", adminToken, "", apperr.KindForbidden},
		{"mismatched header", adminToken, "csrf-other", apperr.KindForbidden},
		{"wrong role", f.token(t, f.owner, "csrf-owner"), "csrf-owner", apperr.KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen, err := run(t, guard, tt.cookie, tt.header)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.Nil(t, seen)
		})
	}

	t.Run("valid session", func(t *testing.T) {
		seen, err := run(t, guard, adminToken, "csrf-admin")
		require.NoError(t, err)
		require.NotNil(t, seen)
		assert.Equal(t, f.admin.ID, seen.AccountID())
	})
}

func TestRequireRole_CSRFCheckedBeforeSignature(t *testing.T) {
	f := newGuardFixture(t)
	guard := middleware.RequireRole(f.issuer, csrfHeader, models.RoleAdmin)

	// A forged token with a valid shape but the wrong key still fails the
	// header comparison first.
	forged := session.NewIssuer(&config.SessionConfig{
		Secret: strings.Repeat("x", config.MinSecretLength), Duration: time.Hour, CookieName: "session_token",
	}, f.repo)
	token, err := forged.Issue(f.admin, "csrf-forged")
	require.NoError(t, err)

	_, err = run(t, guard, token, "wrong")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = run(t, guard, token, "csrf-forged")
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestRequireRole_LogoutInvalidates(t *testing.T) {
	f := newGuardFixture(t)
	guard := middleware.RequireRole(f.issuer, csrfHeader, models.RoleAdmin)
	token := f.token(t, f.admin, "csrf-admin")

	require.NoError(t, f.repo.SetLastLogout(context.Background(), models.RoleAdmin, f.admin.ID, time.Now().Add(time.Second)))

	_, err := run(t, guard, token, "csrf-admin")
	assert.ErrorIs(t, err, middleware.ErrInvalidSession)
}

func TestRequireRole_MultipleRoles(t *testing.T) {
	f := newGuardFixture(t)
	guard := middleware.RequireRole(f.issuer, csrfHeader, models.RoleAdmin, models.RoleProjectOwner)

	seen, err := run(t, guard, f.token(t, f.owner, "c"), "c")
	require.NoError(t, err)
	assert.Equal(t, models.RoleProjectOwner, seen.AccountRole())
}

func TestLoadAccount(t *testing.T) {
	f := newGuardFixture(t)
	mw := middleware.LoadAccount(f.issuer)
	e := echo.New()

	serve := func(method, cookie string) models.Account {
		req := httptest.NewRequest(method, "/api/v1/projects/1", nil)
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: "session_token", Value: cookie})
		}
		c := e.NewContext(req, httptest.NewRecorder())
		var seen models.Account
		require.NoError(t, mw(func(c echo.Context) error {
			seen = auth.GetAccount(c.Request().Context())
			return nil
		})(c))
		return seen
	}

	token := f.token(t, f.owner, "c")
	assert.Nil(t, serve(http.MethodGet, ""))
	assert.Nil(t, serve(http.MethodGet, "garbage"))
	assert.Nil(t, serve(http.MethodPost, token))

	acct := serve(http.MethodGet, token)
	require.NotNil(t, acct)
	assert.Equal(t, f.owner.ID, acct.AccountID())
}
