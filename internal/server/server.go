// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/oliverandrich/volunteerhub/internal/config"
	"codeberg.org/oliverandrich/volunteerhub/internal/expiry"
	"codeberg.org/oliverandrich/volunteerhub/internal/handlers"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	SetupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	app, err := NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	// An unparseable schedule stops startup here.
	scheduler, err := expiry.NewScheduler(cfg.Expiry.Schedule, app.Location, app.Expiry)
	if err != nil {
		return err
	}

	e, err := NewEcho(app, scheduler)
	if err != nil {
		return err
	}

	scheduler.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		scheduler.Stop(stopCtx)
	}()

	return startWithGracefulShutdown(ctx, e, cfg)
}

// NewEcho builds the echo instance with middleware, error handler and routes.
func NewEcho(app *App, scheduler *expiry.Scheduler) (*echo.Echo, error) {
	h, err := handlers.New(handlers.Deps{
		Config:    app.Config,
		Sessions:  app.Sessions,
		Auth:      app.Auth,
		Reset:     app.Reset,
		Projects:  app.Projects,
		Scheduler: scheduler,
	})
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handlers.ErrorHandler

	setupMiddleware(e, app.Config)
	h.Register(e)
	return e, nil
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("Server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
