// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"

	"codeberg.org/oliverandrich/volunteerhub/internal/apperr"
	"codeberg.org/oliverandrich/volunteerhub/internal/config"
	"codeberg.org/oliverandrich/volunteerhub/internal/expiry"
	authsvc "codeberg.org/oliverandrich/volunteerhub/internal/services/auth"
	"codeberg.org/oliverandrich/volunteerhub/internal/services/projects"
	"codeberg.org/oliverandrich/volunteerhub/internal/services/reset"
	"codeberg.org/oliverandrich/volunteerhub/internal/services/session"
	"github.com/gorilla/securecookie"
	"github.com/labstack/echo/v4"
)

// ErrMalformedBody is returned when a request body cannot be decoded.
var ErrMalformedBody = apperr.BadRequest("malformed request body")

// Handlers contains all HTTP handlers.
type Handlers struct {
	cfg         *config.Config
	sessions    *session.Issuer
	auth        *authsvc.Service
	reset       *reset.Service
	projects    *projects.Service
	scheduler   *expiry.Scheduler
	resetCookie *securecookie.SecureCookie
}

// Deps are the services the handlers delegate to.
type Deps struct {
	Config    *config.Config
	Sessions  *session.Issuer
	Auth      *authsvc.Service
	Reset     *reset.Service
	Projects  *projects.Service
	Scheduler *expiry.Scheduler // nil when the scheduler is not running
}

// New creates a new Handlers instance.
func New(deps Deps) (*Handlers, error) {
	hashKey, err := hex.DecodeString(deps.Config.Reset.HashKey)
	if err != nil {
		return nil, fmt.Errorf("invalid reset cookie hash key: %w", err)
	}
	var blockKey []byte
	if deps.Config.Reset.BlockKey != "" {
		if blockKey, err = hex.DecodeString(deps.Config.Reset.BlockKey); err != nil {
			return nil, fmt.Errorf("invalid reset cookie block key: %w", err)
		}
	}

	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(deps.Config.Reset.TokenTTL.Seconds()))

	return &Handlers{
		cfg:         deps.Config,
		sessions:    deps.Sessions,
		auth:        deps.Auth,
		reset:       deps.Reset,
		projects:    deps.Projects,
		scheduler:   deps.Scheduler,
		resetCookie: sc,
	}, nil
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// bind decodes the request body into dst.
func bind(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return ErrMalformedBody.Wrap(err)
	}
	return nil
}

// paramID parses the :id path parameter.
func paramID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, projects.ErrNotFound
	}
	return id, nil
}
