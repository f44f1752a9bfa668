// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/volunteerhub/internal/config"
	"codeberg.org/oliverandrich/volunteerhub/internal/database"
	"codeberg.org/oliverandrich/volunteerhub/internal/expiry"
	"codeberg.org/oliverandrich/volunteerhub/internal/i18n"
	"codeberg.org/oliverandrich/volunteerhub/internal/repository"
	"codeberg.org/oliverandrich/volunteerhub/internal/services/auth"
	"codeberg.org/oliverandrich/volunteerhub/internal/services/email"
	"codeberg.org/oliverandrich/volunteerhub/internal/services/projects"
	"codeberg.org/oliverandrich/volunteerhub/internal/services/reset"
	"codeberg.org/oliverandrich/volunteerhub/internal/services/session"
	"github.com/vinovest/sqlx"
)

// App holds the wired services of one process.
type App struct {
	Config   *config.Config
	DB       *sqlx.DB
	Repo     *repository.Repository
	Sessions *session.Issuer
	Auth     *auth.Service
	Reset    *reset.Service
	Projects *projects.Service
	Expiry   *expiry.Job
	Location *time.Location
}

// NewApp opens the database, applies migrations and builds every service
// from cfg.
func NewApp(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := i18n.Init(); err != nil {
		return nil, fmt.Errorf("failed to init i18n: %w", err)
	}

	loc, err := cfg.Expiry.Location()
	if err != nil {
		return nil, err
	}

	mailer, err := email.NewMailer(&cfg.SMTP)
	if err != nil {
		return nil, fmt.Errorf("failed to configure mailer: %w", err)
	}

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := repository.New(db)
	mails := email.NewService(mailer, cfg.Server.BaseURL, cfg.Server.FrontendURL)
	authService := auth.NewService(repo, mails, cfg.Reset.ConfirmationTTL)

	return &App{
		Config:   cfg,
		DB:       db,
		Repo:     repo,
		Sessions: session.NewIssuer(&cfg.Session, repo),
		Auth:     authService,
		Reset:    reset.NewService(repo, mails, authService, cfg.Reset.TokenTTL),
		Projects: projects.NewService(repo),
		Expiry:   expiry.NewJob(repo, loc),
		Location: loc,
	}, nil
}

// Close releases the database.
func (a *App) Close() {
	if err := a.DB.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
}
