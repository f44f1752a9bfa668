// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package expiry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner is the work a Scheduler triggers.
type Runner interface {
	Run(ctx context.Context) (Report, error)
}

// Scheduler runs a Runner on a cron schedule and keeps the last report.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	expr   string
	loc    *time.Location

	mu   sync.RWMutex
	last *Report
}

// NewScheduler parses expr as a standard 5-field cron expression evaluated
// in loc.
func NewScheduler(expr string, loc *time.Location, runner Runner) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		runner: runner,
		expr:   expr,
		loc:    loc,
	}
	if _, err := s.cron.AddFunc(expr, s.tick); err != nil {
		return nil, fmt.Errorf("invalid expiry schedule %q: %w", expr, err)
	}
	return s, nil
}

// Start begins scheduling in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("expiry_scheduler_started", "schedule", s.expr, "timezone", s.loc.String(), "next_run", s.Next())
}

// Stop stops scheduling and waits for a running sweep, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// RunNow triggers a sweep synchronously and records its report.
func (s *Scheduler) RunNow(ctx context.Context) (Report, error) {
	report, err := s.runner.Run(ctx)
	if err != nil {
		return report, err
	}
	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()
	return report, nil
}

func (s *Scheduler) tick() {
	if _, err := s.RunNow(context.Background()); err != nil {
		slog.Error("expiry_sweep_failed", "error", err)
	}
}

// LastReport returns the report of the most recent successful sweep.
func (s *Scheduler) LastReport() (Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return Report{}, false
	}
	return *s.last, true
}

// Schedule returns the cron expression.
func (s *Scheduler) Schedule() string {
	return s.expr
}

// Location returns the schedule's timezone.
func (s *Scheduler) Location() *time.Location {
	return s.loc
}

// Next returns the next planned run after now.
func (s *Scheduler) Next() time.Time {
	next, _ := NextRun(s.expr, s.loc, time.Now())
	return next
}

// NextRun computes the first activation of expr after now, in loc.
func NextRun(expr string, loc *time.Location, now time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expiry schedule %q: %w", expr, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return sched.Next(now.In(loc)), nil
}
