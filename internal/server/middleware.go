// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"fmt"
	"net/http"

	"codeberg.org/oliverandrich/volunteerhub/internal/config"
	"codeberg.org/oliverandrich/volunteerhub/internal/middleware"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

const headerAcceptLanguage = "Accept-Language"

func setupMiddleware(e *echo.Echo, cfg *config.Config) {
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLogger())
	e.Use(echomw.Secure())
	e.Use(corsMiddleware(cfg))
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dM", max(cfg.Server.MaxBodySize, 1))))
	e.Use(middleware.Locale())
}

// corsMiddleware admits the frontend origin with credentials and exposes
// the anti-forgery header to it.
func corsMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	return echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.Server.FrontendURL},
		AllowMethods:     []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAccept, headerAcceptLanguage, cfg.Session.CSRFHeader},
		ExposeHeaders:    []string{cfg.Session.CSRFHeader, echo.HeaderXRequestID},
		AllowCredentials: true,
	})
}
