// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/volunteerhub/internal/apperr"
	"codeberg.org/oliverandrich/volunteerhub/internal/i18n"
	"github.com/labstack/echo/v4"
)

// ErrorBody is the JSON envelope of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failed request.
type ErrorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  []apperr.FieldError `json:"fields,omitempty"`
}

// genericMessages hides the reason behind failures that must not disclose
// which check failed.
var genericMessages = map[apperr.Kind]string{
	apperr.KindUnauthenticated: "error_unauthenticated",
	apperr.KindForbidden:       "error_forbidden",
	apperr.KindNotFound:        "error_not_found",
	apperr.KindConflict:        "error_conflict",
	apperr.KindValidation:      "error_validation",
	apperr.KindInternal:        "error_internal",
}

// ErrorHandler is the central echo error handler. It maps application
// errors to status codes and JSON bodies and logs internal details.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	ctx := c.Request().Context()
	appErr, status := classify(err)

	detail := ErrorDetail{Code: appErr.Kind.Code(), Message: appErr.Message, Fields: appErr.Fields}
	if id, ok := genericMessages[appErr.Kind]; ok {
		detail.Message = i18n.T(ctx, id)
	}

	if appErr.Kind == apperr.KindInternal {
		slog.ErrorContext(ctx, "request_failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"error", err,
		)
	}

	var sendErr error
	if c.Request().Method == http.MethodHead {
		sendErr = c.NoContent(status)
	} else {
		sendErr = c.JSON(status, ErrorBody{Error: detail})
	}
	if sendErr != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", sendErr)
	}
}

// classify turns any error into an *apperr.Error and its status code.
// Echo's own errors (unknown route, body too large) keep their code.
func classify(err error) (*apperr.Error, int) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr, appErr.Kind.Status()
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) && httpErr.Code < http.StatusInternalServerError {
		msg := http.StatusText(httpErr.Code)
		switch httpErr.Code {
		case http.StatusUnauthorized:
			return apperr.Unauthenticated(msg).Wrap(err), httpErr.Code
		case http.StatusForbidden:
			return apperr.Forbidden(msg).Wrap(err), httpErr.Code
		case http.StatusNotFound:
			return apperr.NotFound(msg).Wrap(err), httpErr.Code
		}
		return apperr.BadRequest(msg).Wrap(err), httpErr.Code
	}

	return apperr.Internal(err), http.StatusInternalServerError
}
