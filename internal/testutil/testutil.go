// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/oliverandrich/volunteerhub/internal/database"
	"codeberg.org/oliverandrich/volunteerhub/internal/models"
	"codeberg.org/oliverandrich/volunteerhub/internal/repository"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the password of every fixture account.
const TestPassword = "correct-horse-battery-staple"

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// HashPassword hashes password with the minimum bcrypt cost.
func HashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func confirmedAt() *time.Time {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &now
}

// NewTestUser creates a confirmed user with TestPassword.
func NewTestUser(t *testing.T, repo *repository.Repository, email string) *models.User {
	t.Helper()
	user := &models.User{
		Identity:     models.Identity{Email: email, Name: "Test User", PasswordHash: HashPassword(t, TestPassword)},
		Confirmation: models.Confirmation{ConfirmedAt: confirmedAt()},
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

// NewTestProjectOwner creates a confirmed project owner with TestPassword.
func NewTestProjectOwner(t *testing.T, repo *repository.Repository, email string) *models.ProjectOwner {
	t.Helper()
	owner := &models.ProjectOwner{
		Identity:     models.Identity{Email: email, Name: "Test Owner", PasswordHash: HashPassword(t, TestPassword)},
		Confirmation: models.Confirmation{ConfirmedAt: confirmedAt()},
		Organisation: "Helping Hands",
	}
	require.NoError(t, repo.CreateProjectOwner(context.Background(), owner))
	return owner
}

// NewTestAdmin creates an admin with TestPassword.
func NewTestAdmin(t *testing.T, repo *repository.Repository, email string) *models.Admin {
	t.Helper()
	admin := &models.Admin{
		Identity: models.Identity{Email: email, Name: "Test Admin", PasswordHash: HashPassword(t, TestPassword)},
	}
	require.NoError(t, repo.CreateAdmin(context.Background(), admin))
	return admin
}

// NewTestProject creates a pending event project for ownerID. Options run
// before the insert.
func NewTestProject(t *testing.T, repo *repository.Repository, ownerID int64, opts ...func(*models.Project)) *models.Project {
	t.Helper()
	end := models.NewDate(time.Now().AddDate(0, 1, 0))
	start := models.NewDate(time.Now())
	p := &models.Project{
		OwnerID:         ownerID,
		Title:           "Beach cleanup",
		Description:     "Help us clean the east coast beaches.",
		Region:          "East",
		Location:        "East Coast Park",
		TimeOfDay:       "09:00",
		IssuesAddressed: models.IssueList{models.IssueEnvironment},
		VolunteerRequirements: models.RequirementList{
			{Type: "Cleaner", CommitmentLevel: models.CommitmentOneOff, Count: 10},
		},
		Type:      models.ProjectTypeEvent,
		StartDate: &start,
		EndDate:   &end,
		State:     models.StatePendingApproval,
	}
	for _, opt := range opts {
		opt(p)
	}
	require.NoError(t, repo.CreateProject(context.Background(), p))
	return p
}

// WithState sets the initial state of a fixture project.
func WithState(state models.ProjectState) func(*models.Project) {
	return func(p *models.Project) {
		p.State = state
	}
}

// WithEndDate sets the end date of a fixture project.
func WithEndDate(d models.Date) func(*models.Project) {
	return func(p *models.Project) {
		p.EndDate = &d
	}
}

// Recurring turns a fixture project into a recurring one without dates.
func Recurring(p *models.Project) {
	p.Type = models.ProjectTypeRecurring
	p.StartDate = nil
	p.EndDate = nil
	p.Frequency = "Every Saturday"
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

// CaptureLogs routes the default slog logger into a buffer for the rest of
// the test and restores the previous logger afterwards.
func CaptureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

// BlockTokenDeletes makes every delete on account_tokens fail.
func BlockTokenDeletes(t *testing.T, repo *repository.Repository) {
	t.Helper()
	_, err := repo.DB().Exec(`CREATE TRIGGER block_token_delete BEFORE DELETE ON account_tokens
		BEGIN SELECT RAISE(ABORT, 'token table is read-only'); END`)
	require.NoError(t, err)
}
