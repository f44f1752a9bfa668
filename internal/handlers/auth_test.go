// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"codeberg.org/oliverandrich/volunteerhub/internal/models"
	"codeberg.org/oliverandrich/volunteerhub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_Admin(t *testing.T) {
	a := newApp(t)
	testutil.NewTestAdmin(t, a.repo, "admin@example.com")

	rec := a.do(t, request{
		method: http.MethodPost,
		path:   "/api/v1/admins/login",
		body:   `{"email":"Admin@Example.com","password":"` + testutil.TestPassword + `"}`,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Len(t, rec.Header().Get(csrfHeader), 43)
	cookie := findCookie(t, rec, cookieName)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)

	var body struct {
		User map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "admin@example.com", body.User["email"])
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestLogin_WrongPassword(t *testing.T) {
	a := newApp(t)
	testutil.NewTestAdmin(t, a.repo, "admin@example.com")

	rec := a.do(t, request{
		method: http.MethodPost,
		path:   "/api/v1/admins/login",
		body:   `{"email":"admin@example.com","password":"not-the-password"}`,
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", decodeError(t, rec).Error.Code)
	assert.Empty(t, rec.Header().Get(csrfHeader))
	assert.Empty(t, rec.Result().Cookies())
}

func TestLogin_WrongRoleEndpoint(t *testing.T) {
	a := newApp(t)
	testutil.NewTestAdmin(t, a.repo, "admin@example.com")

	rec := a.do(t, request{
		method: http.MethodPost,
		path:   "/api/v1/users/login",
		body:   `{"email":"admin@example.com","password":"` + testutil.TestPassword + `"}`,
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout(t *testing.T) {
	a := newApp(t)
	testutil.NewTestAdmin(t, a.repo, "admin@example.com")
	sess := a.login(t, "admins", "admin@example.com", testutil.TestPassword)

	rec := a.do(t, request{method: http.MethodDelete, path: "/api/v1/admins/logout", cookies: []*http.Cookie{sess.cookie}})
	assert.Equal(t, http.StatusForbidden, rec.Code, "missing anti-forgery header")

	rec = a.do(t, request{method: http.MethodDelete, path: "/api/v1/admins/logout", session: sess, csrf: ptr("forged")})
	assert.Equal(t, http.StatusForbidden, rec.Code, "mismatched anti-forgery header")

	rec = a.do(t, request{method: http.MethodDelete, path: "/api/v1/admins/logout", session: sess})
	require.Equal(t, http.StatusNoContent, rec.Code)
	cleared := findCookie(t, rec, cookieName)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)

	// The old token no longer validates.
	rec = a.do(t, request{method: http.MethodGet, path: "/api/v1/admins/me", session: sess})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_WithoutSession(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, request{method: http.MethodDelete, path: "/api/v1/admins/logout", csrf: ptr("anything")})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe_RoleMismatch(t *testing.T) {
	a := newApp(t)
	testutil.NewTestProjectOwner(t, a.repo, "owner@example.com")
	sess := a.login(t, "project_owners", "owner@example.com", testutil.TestPassword)

	rec := a.do(t, request{method: http.MethodGet, path: "/api/v1/admins/me", session: sess})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, request{method: http.MethodGet, path: "/api/v1/project_owners/me", session: sess})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Helping Hands")
}

func TestChangePassword(t *testing.T) {
	a := newApp(t)
	testutil.NewTestUser(t, a.repo, "user@example.com")
	sess := a.login(t, "users", "user@example.com", testutil.TestPassword)

	rec := a.do(t, request{
		method: http.MethodPut, path: "/api/v1/users/password", session: sess,
		body: `{"currentPassword":"wrong","password":"lantern-orchid-meadow"}`,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "currentPassword", decodeError(t, rec).Error.Fields[0].Field)

	rec = a.do(t, request{
		method: http.MethodPut, path: "/api/v1/users/password", session: sess,
		body: `{"currentPassword":"` + testutil.TestPassword + `","password":"lantern-orchid-meadow"}`,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	fresh := &clientSession{cookie: findCookie(t, rec, cookieName), csrf: rec.Header().Get(csrfHeader)}
	assert.NotEqual(t, sess.csrf, fresh.csrf)

	rec = a.do(t, request{method: http.MethodGet, path: "/api/v1/users/me", session: sess})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "old session is invalidated")

	rec = a.do(t, request{method: http.MethodGet, path: "/api/v1/users/me", session: fresh})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignUpAndConfirm(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, request{
		method: http.MethodPost, path: "/api/v1/project_owners",
		body: `{"email":"new@example.com","name":"Nadia","password":"lantern-orchid-meadow","organisation":"Food Rescue"}`,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, a.mailer.Sent(), 1)
	token := a.mailer.Token()
	require.NotEmpty(t, token)

	login := request{
		method: http.MethodPost, path: "/api/v1/project_owners/login",
		body: `{"email":"new@example.com","password":"lantern-orchid-meadow"}`,
	}
	assert.Equal(t, http.StatusUnauthorized, a.do(t, login).Code, "unconfirmed owners cannot sign in")

	rec = a.do(t, request{
		method: http.MethodPut, path: "/api/v1/project_owners/confirmation",
		body: `{"email":"new@example.com","token":"` + token + `"}`,
	})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusOK, a.do(t, login).Code)

	// Tokens are single use.
	rec = a.do(t, request{
		method: http.MethodPut, path: "/api/v1/project_owners/confirmation",
		body: `{"email":"new@example.com","token":"` + token + `"}`,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	acct, err := a.repo.GetAccountByEmail(context.Background(), models.RoleProjectOwner, "new@example.com")
	require.NoError(t, err)
	assert.True(t, acct.(models.Confirmable).IsConfirmed())
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	a := newApp(t)
	testutil.NewTestUser(t, a.repo, "taken@example.com")

	rec := a.do(t, request{
		method: http.MethodPost, path: "/api/v1/users",
		body: `{"email":"taken@example.com","name":"Tom","password":"lantern-orchid-meadow"}`,
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeError(t, rec)
	require.NotEmpty(t, body.Error.Fields)
	assert.Equal(t, "email", body.Error.Fields[0].Field)
}
