// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package projects implements project listing, editing and the approval
// workflow as seen by owners, admins and the public.
package projects

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/volunteerhub/internal/apperr"
	"codeberg.org/oliverandrich/volunteerhub/internal/models"
	"codeberg.org/oliverandrich/volunteerhub/internal/repository"
	"codeberg.org/oliverandrich/volunteerhub/internal/workflow"
)

// Page sizes for listings.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

var (
	// ErrNotFound also covers projects the caller may not see.
	ErrNotFound = apperr.NotFound("project not found")
	// ErrNotOwner means the project belongs to a different owner.
	ErrNotOwner = apperr.Forbidden("project belongs to another owner")
	// ErrNotPermitted means the caller's role cannot write projects.
	ErrNotPermitted = apperr.Forbidden("this account kind cannot change projects")
	// ErrConflict means the version in the request is stale.
	ErrConflict = apperr.Conflict("project was modified by someone else")
	// ErrAdminEditOnly means an admin sent descriptive fields.
	ErrAdminEditOnly = apperr.Validation(apperr.FieldError{Field: "project", Message: "admins may only change state and rejectionReason"})
)

// Service creates, edits, moves and lists projects.
type Service struct {
	repo *repository.Repository
}

// NewService creates a projects service.
func NewService(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

// Create stores a new project for owner in state PENDING_APPROVAL.
func (s *Service) Create(ctx context.Context, owner *models.ProjectOwner, in Input) (*models.Project, error) {
	var fields apperr.Fields
	if in.State != nil {
		fields.Add("state", "can't be set on a new project")
	}
	if in.RejectionReason != nil {
		fields.Add("rejectionReason", "can't be set on a new project")
	}

	p := &models.Project{OwnerID: owner.ID, State: models.StatePendingApproval}
	in.apply(p)
	fields = append(fields, validate(p)...)
	if err := fields.Err(); err != nil {
		return nil, err
	}

	if err := s.repo.CreateProject(ctx, p); err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to create project: %w", err))
	}

	slog.InfoContext(ctx, "project_created", "project_id", p.ID, "owner_id", owner.ID)
	return p, nil
}

// Update edits a project on behalf of actor. Owners edit the fields of
// their own projects and toggle state through the owner table. Admins only
// change state through the admin table.
func (s *Service) Update(ctx context.Context, actor models.Account, id int64, in Input) (*models.Project, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	switch actor.AccountRole() {
	case models.RoleProjectOwner:
		if p.OwnerID != actor.AccountID() {
			return nil, ErrNotOwner
		}
	case models.RoleAdmin:
		if in.hasContent() {
			return nil, ErrAdminEditOnly
		}
		if in.State == nil {
			return nil, apperr.Validation(apperr.FieldError{Field: "state", Message: "can't be blank"})
		}
	default:
		return nil, ErrNotPermitted
	}

	if in.Version != nil && *in.Version != p.Version {
		return nil, ErrConflict
	}

	from := p.State
	var fields apperr.Fields
	if in.hasContent() {
		in.apply(p)
		fields = validate(p)
	}

	if in.State != nil {
		res, err := workflow.AttemptTransition(p.State, actor.AccountRole(), *in.State,
			workflow.Payload{RejectionReason: deref(in.RejectionReason)})
		if err != nil {
			fields = append(fields, transitionField(err))
		} else {
			p.State = res.State
			p.RejectionReason = res.RejectionReason
		}
	} else if in.RejectionReason != nil {
		fields.Add("rejectionReason", "can only be set when rejecting a project")
	}

	if err := fields.Err(); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProject(ctx, p); err != nil {
		return nil, s.translate(err)
	}

	if p.State != from {
		slog.InfoContext(ctx, "project_transition",
			"project_id", p.ID, "actor_role", actor.AccountRole(), "actor_id", actor.AccountID(),
			"from", from, "to", p.State)
	} else {
		slog.InfoContext(ctx, "project_updated", "project_id", p.ID, "owner_id", actor.AccountID())
	}
	return p, nil
}

func transitionField(err error) apperr.FieldError {
	switch {
	case errors.Is(err, workflow.ErrReasonRequired):
		return apperr.FieldError{Field: "rejectionReason", Message: "can't be blank when rejecting"}
	case errors.Is(err, workflow.ErrReasonTooLong):
		return apperr.FieldError{Field: "rejectionReason",
			Message: fmt.Sprintf("is too long (maximum is %d characters)", workflow.MaxRejectionReasonLength)}
	case errors.Is(err, workflow.ErrUnknownState):
		return apperr.FieldError{Field: "state", Message: "is not a known state"}
	}
	var terr *workflow.TransitionError
	if errors.As(err, &terr) {
		return apperr.FieldError{Field: "state", Message: fmt.Sprintf("can't change from %s to %s", terr.From, terr.To)}
	}
	return apperr.FieldError{Field: "state", Message: err.Error()}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Get returns a project as visible to viewer. A nil viewer is the public,
// which only sees active projects. Owners see their own projects in every
// state, admins see everything.
func (s *Service) Get(ctx context.Context, viewer models.Account, id int64) (*models.Project, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(viewer, p) {
		return nil, ErrNotFound
	}
	return p, nil
}

func visible(viewer models.Account, p *models.Project) bool {
	if p.State == models.StateApprovedActive {
		return true
	}
	if viewer == nil {
		return false
	}
	switch viewer.AccountRole() {
	case models.RoleAdmin:
		return true
	case models.RoleProjectOwner:
		return p.OwnerID == viewer.AccountID()
	}
	return false
}

// ListPublic lists active projects.
func (s *Service) ListPublic(ctx context.Context, filter repository.ProjectFilter) ([]models.Project, error) {
	filter.States = []models.ProjectState{models.StateApprovedActive}
	filter.OwnerID = 0
	return s.list(ctx, filter)
}

// ListForOwner lists the projects of owner in any state.
func (s *Service) ListForOwner(ctx context.Context, owner models.Account, filter repository.ProjectFilter) ([]models.Project, error) {
	filter.OwnerID = owner.AccountID()
	return s.list(ctx, filter)
}

// ListForAdmin lists projects in any state, optionally narrowed by filter.
func (s *Service) ListForAdmin(ctx context.Context, filter repository.ProjectFilter) ([]models.Project, error) {
	for _, st := range filter.States {
		if !st.Valid() {
			return nil, apperr.Validation(apperr.FieldError{Field: "state", Message: fmt.Sprintf("%q is not a known state", st)})
		}
	}
	return s.list(ctx, filter)
}

func (s *Service) list(ctx context.Context, filter repository.ProjectFilter) ([]models.Project, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, apperr.Validation(apperr.FieldError{Field: "projectType", Message: "must be EVENT or RECURRING"})
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = DefaultLimit
	case filter.Limit > MaxLimit:
		filter.Limit = MaxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	projects, err := s.repo.ListProjects(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to list projects: %w", err))
	}
	return projects, nil
}

// Delete removes a project of owner.
func (s *Service) Delete(ctx context.Context, owner models.Account, id int64) error {
	p, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if p.OwnerID != owner.AccountID() {
		return ErrNotOwner
	}
	if err := s.repo.DeleteProject(ctx, id, owner.AccountID()); err != nil {
		return s.translate(err)
	}
	slog.InfoContext(ctx, "project_deleted", "project_id", id, "owner_id", owner.AccountID())
	return nil
}

func (s *Service) load(ctx context.Context, id int64) (*models.Project, error) {
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, s.translate(err)
	}
	return p, nil
}

func (s *Service) translate(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrStale):
		return ErrConflict
	}
	return apperr.Internal(err)
}
