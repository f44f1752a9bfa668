// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"time"

	"codeberg.org/oliverandrich/volunteerhub/internal/apperr"
	"codeberg.org/oliverandrich/volunteerhub/internal/expiry"
	"github.com/labstack/echo/v4"
)

// CronJobTimeResponse reports when the expiry sweep runs next.
type CronJobTimeResponse struct {
	NextRunAt time.Time `json:"nextRunAt"`
	Schedule  string    `json:"schedule"`
	Timezone  string    `json:"timezone"`
}

// CronJobTime returns the next run of the expiry sweep. An unparseable
// schedule is a server error.
func (h *Handlers) CronJobTime(c echo.Context) error {
	loc, err := h.cfg.Expiry.Location()
	if err != nil {
		return apperr.Internal(err)
	}
	next, err := expiry.NextRun(h.cfg.Expiry.Schedule, loc, time.Now())
	if err != nil {
		return apperr.Internal(err)
	}
	return c.JSON(http.StatusOK, CronJobTimeResponse{
		NextRunAt: next,
		Schedule:  h.cfg.Expiry.Schedule,
		Timezone:  loc.String(),
	})
}

// ExpiryReportResponse wraps the last sweep report.
type ExpiryReportResponse struct {
	Report *expiry.Report `json:"report"`
}

// ExpiryReport returns the report of the last sweep, or a null report when
// none has run since start.
func (h *Handlers) ExpiryReport(c echo.Context) error {
	var resp ExpiryReportResponse
	if h.scheduler != nil {
		if report, ok := h.scheduler.LastReport(); ok {
			resp.Report = &report
		}
	}
	return c.JSON(http.StatusOK, resp)
}
