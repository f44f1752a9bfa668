// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package expiry deactivates event projects whose end date has passed.
package expiry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/volunteerhub/internal/models"
	"codeberg.org/oliverandrich/volunteerhub/internal/repository"
	"codeberg.org/oliverandrich/volunteerhub/internal/workflow"
)

// Failure codes reported for a project the sweep could not expire. The
// underlying error is only logged.
const (
	FailureStale        = "stale"
	FailureNotActive    = "not_active"
	FailureUpdateFailed = "update_failed"
)

// Failure records a project the sweep could not expire.
type Failure struct {
	ProjectID int64  `json:"projectId"`
	Code      string `json:"code"`
}

// Report is the outcome of one sweep.
type Report struct { //nolint:govet // fieldalignment: readability over optimization
	RanAt     time.Time `json:"ranAt"`
	Today     string    `json:"today"`
	Succeeded []int64   `json:"succeeded"`
	Failed    []Failure `json:"failed"`
}

// Job finds active events that ended before today and moves them to
// APPROVED_INACTIVE.
type Job struct {
	repo *repository.Repository
	loc  *time.Location
	now  func() time.Time
}

// Option configures a Job.
type Option func(*Job)

// WithClock overrides the job's time source.
func WithClock(now func() time.Time) Option {
	return func(j *Job) {
		j.now = now
	}
}

// NewJob creates a Job that decides "today" in loc.
func NewJob(repo *repository.Repository, loc *time.Location, opts ...Option) *Job {
	if loc == nil {
		loc = time.UTC
	}
	j := &Job{repo: repo, loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Today returns the current calendar date in the job's location.
func (j *Job) Today() models.Date {
	return models.NewDate(j.now().In(j.loc))
}

// Run performs one sweep. A failing project is logged and skipped; only a
// failure to list candidates aborts the run.
func (j *Job) Run(ctx context.Context) (Report, error) {
	today := j.Today()
	report := Report{
		RanAt:     j.now().UTC(),
		Today:     today.String(),
		Succeeded: []int64{},
		Failed:    []Failure{},
	}

	candidates, err := j.repo.ListExpiredEvents(ctx, today)
	if err != nil {
		return report, fmt.Errorf("failed to list expired events: %w", err)
	}

	for _, p := range candidates {
		if err := j.expire(ctx, &p); err != nil {
			slog.ErrorContext(ctx, "project_expiry_failed", "project_id", p.ID, "error", err)
			report.Failed = append(report.Failed, Failure{ProjectID: p.ID, Code: failureCode(err)})
			continue
		}
		slog.InfoContext(ctx, "project_expired", "project_id", p.ID, "end_date", p.EndDate.String())
		report.Succeeded = append(report.Succeeded, p.ID)
	}

	slog.InfoContext(ctx, "expiry_sweep_finished",
		"today", report.Today, "expired", len(report.Succeeded), "failed", len(report.Failed))
	return report, nil
}

func (j *Job) expire(ctx context.Context, p *models.Project) error {
	res, err := workflow.Expire(p.State)
	if err != nil {
		return err
	}
	return j.repo.UpdateProjectState(ctx, p.ID, p.Version, res.State, res.RejectionReason)
}

func failureCode(err error) string {
	switch {
	case errors.Is(err, repository.ErrStale):
		return FailureStale
	case errors.Is(err, workflow.ErrIllegalTransition):
		return FailureNotActive
	default:
		return FailureUpdateFailed
	}
}
