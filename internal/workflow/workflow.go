// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package workflow holds the project approval rules: which actor may move a
// project from which state to which, and what a transition must carry.
package workflow

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"codeberg.org/oliverandrich/volunteerhub/internal/models"
)

// MaxRejectionReasonLength is the longest accepted rejection reason, in characters.
const MaxRejectionReasonLength = 500

var (
	// ErrIllegalTransition means the actor's table has no edge to the requested state.
	ErrIllegalTransition = errors.New("transition not allowed")
	// ErrUnknownState means the requested state is not a project state.
	ErrUnknownState = errors.New("unknown project state")
	// ErrActorNotAllowed means the role has no transition table at all.
	ErrActorNotAllowed = errors.New("role cannot change project state")
	// ErrReasonRequired means a rejection was requested without a reason.
	ErrReasonRequired = errors.New("rejection reason is required")
	// ErrReasonTooLong means the rejection reason exceeds MaxRejectionReasonLength.
	ErrReasonTooLong = fmt.Errorf("rejection reason must be at most %d characters", MaxRejectionReasonLength)
)

type stateSet map[models.ProjectState]struct{}

func states(s ...models.ProjectState) stateSet {
	set := make(stateSet, len(s))
	for _, st := range s {
		set[st] = struct{}{}
	}
	return set
}

var ownerTransitions = map[models.ProjectState]stateSet{
	models.StatePendingApproval:  states(),
	models.StateApprovedActive:   states(models.StateApprovedInactive),
	models.StateApprovedInactive: states(models.StateApprovedActive),
	models.StateRejected:         states(models.StatePendingApproval),
}

var adminTransitions = map[models.ProjectState]stateSet{
	models.StatePendingApproval:  states(models.StateApprovedActive, models.StateRejected),
	models.StateApprovedActive:   states(models.StateApprovedInactive),
	models.StateApprovedInactive: states(models.StateApprovedActive),
	models.StateRejected:         states(),
}

func tableFor(actor models.Role) (map[models.ProjectState]stateSet, bool) {
	switch actor {
	case models.RoleProjectOwner:
		return ownerTransitions, true
	case models.RoleAdmin:
		return adminTransitions, true
	}
	return nil, false
}

// Payload carries the auxiliary data a transition may need.
type Payload struct {
	RejectionReason string
}

// Result is the outcome of an accepted transition.
type Result struct {
	State           models.ProjectState
	RejectionReason string // empty unless State is REJECTED
}

// TransitionError describes a refused transition.
type TransitionError struct {
	From  models.ProjectState
	To    models.ProjectState
	Actor models.Role
	Err   error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s cannot move project from %s to %s", e.Err, e.Actor, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// AttemptTransition checks a requested state change against the actor's
// table and the payload preconditions. A request for the current state is
// refused like any other missing edge: no table maps a state to itself.
func AttemptTransition(current models.ProjectState, actor models.Role, requested models.ProjectState, payload Payload) (Result, error) {
	fail := func(err error) (Result, error) {
		return Result{}, &TransitionError{From: current, To: requested, Actor: actor, Err: err}
	}

	table, ok := tableFor(actor)
	if !ok {
		return fail(ErrActorNotAllowed)
	}
	if !requested.Valid() {
		return fail(ErrUnknownState)
	}
	if _, ok := table[current][requested]; !ok {
		return fail(ErrIllegalTransition)
	}

	result := Result{State: requested}
	if requested == models.StateRejected {
		reason := strings.TrimSpace(payload.RejectionReason)
		if reason == "" {
			return fail(ErrReasonRequired)
		}
		if utf8.RuneCountInString(reason) > MaxRejectionReasonLength {
			return fail(ErrReasonTooLong)
		}
		result.RejectionReason = reason
	}

	return result, nil
}

// Allowed returns the states actor may move a project in current to.
func Allowed(current models.ProjectState, actor models.Role) []models.ProjectState {
	table, ok := tableFor(actor)
	if !ok {
		return nil
	}
	var out []models.ProjectState
	for _, st := range models.ProjectStates {
		if _, ok := table[current][st]; ok {
			out = append(out, st)
		}
	}
	return out
}

// Expire is the system transition used by the expiry sweep. It bypasses
// the role tables and only applies to active projects.
func Expire(current models.ProjectState) (Result, error) {
	if current != models.StateApprovedActive {
		return Result{}, &TransitionError{
			From: current, To: models.StateApprovedInactive, Actor: "system", Err: ErrIllegalTransition,
		}
	}
	return Result{State: models.StateApprovedInactive}, nil
}
