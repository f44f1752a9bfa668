// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package projects_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"codeberg.org/oliverandrich/volunteerhub/internal/apperr"
	"codeberg.org/oliverandrich/volunteerhub/internal/models"
	"codeberg.org/oliverandrich/volunteerhub/internal/repository"
	"codeberg.org/oliverandrich/volunteerhub/internal/services/projects"
	"codeberg.org/oliverandrich/volunteerhub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr), "expected *apperr.Error, got %v", err)
	require.Equal(t, apperr.KindValidation, appErr.Kind)
	names := make([]string, len(appErr.Fields))
	for i, f := range appErr.Fields {
		names[i] = f.Field
	}
	return names
}

func validInput() projects.Input {
	start := models.NewDate(time.Now().AddDate(0, 0, 7))
	end := models.NewDate(time.Now().AddDate(0, 0, 8))
	return projects.Input{
		Title:           ptr("Food distribution"),
		Description:     ptr("Pack and hand out grocery bags."),
		Region:          ptr("West"),
		Location:        ptr("Community centre"),
		TimeOfDay:       ptr("10:00 - 14:00"),
		IssuesAddressed: &models.IssueList{models.IssueHumanitarian},
		VolunteerRequirements: &models.RequirementList{
			{Type: "Packer", CommitmentLevel: models.CommitmentOneOff, Count: 5},
		},
		Type:      ptr(models.ProjectTypeEvent),
		StartDate: &start,
		EndDate:   &end,
	}
}

type fixture struct {
	svc   *projects.Service
	repo  *repository.Repository
	owner *models.ProjectOwner
	other *models.ProjectOwner
	admin *models.Admin
	user  *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	return &fixture{
		svc:   projects.NewService(repo),
		repo:  repo,
		owner: testutil.NewTestProjectOwner(t, repo, "owner@example.com"),
		other: testutil.NewTestProjectOwner(t, repo, "other@example.com"),
		admin: testutil.NewTestAdmin(t, repo, "admin@example.com"),
		user:  testutil.NewTestUser(t, repo, "user@example.com"),
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.Create(context.Background(), f.owner, validInput())
	require.NoError(t, err)

	assert.NotZero(t, p.ID)
	assert.Equal(t, f.owner.ID, p.OwnerID)
	assert.Equal(t, models.StatePendingApproval, p.State)
	assert.Equal(t, "Food distribution", p.Title)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := validInput()
	in.Title = ptr("   ")
	in.State = ptr(models.StateApprovedActive)
	in.IssuesAddressed = &models.IssueList{"PIRACY"}
	in.VolunteerRequirements = &models.RequirementList{{Type: "", CommitmentLevel: "SOMETIMES", Count: 0}}
	in.EndDate = ptr(models.NewDate(time.Now()))

	_, err := f.svc.Create(ctx, f.owner, in)
	require.Error(t, err)

	names := fieldNames(t, err)
	for _, want := range []string{
		"state", "title", "issuesAddressed", "endDate",
		"volunteerRequirements[0].type", "volunteerRequirements[0].commitmentLevel", "volunteerRequirements[0].count",
	} {
		assert.Contains(t, names, want)
	}
}

func TestCreate_Recurring(t *testing.T) {
	f := newFixture(t)

	in := validInput()
	in.Type = ptr(models.ProjectTypeRecurring)
	_, err := f.svc.Create(context.Background(), f.owner, in)
	assert.Equal(t, []string{"frequency"}, fieldNames(t, err))

	in.Frequency = ptr("Every Saturday")
	p, err := f.svc.Create(context.Background(), f.owner, in)
	require.NoError(t, err)
	assert.Nil(t, p.StartDate, "recurring projects drop dates")
	assert.Nil(t, p.EndDate)
}

func TestUpdate_OwnerEditsOwnProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := testutil.NewTestProject(t, f.repo, f.owner.ID)

	updated, err := f.svc.Update(ctx, f.owner, p.ID, projects.Input{Title: ptr("Beach cleanup, round two")})
	require.NoError(t, err)
	assert.Equal(t, "Beach cleanup, round two", updated.Title)
	assert.Equal(t, p.Version+1, updated.Version)

	_, err = f.svc.Update(ctx, f.other, p.ID, projects.Input{Title: ptr("Hijacked")})
	assert.ErrorIs(t, err, projects.ErrNotOwner)

	_, err = f.svc.Update(ctx, f.user, p.ID, projects.Input{Title: ptr("Nope")})
	assert.ErrorIs(t, err, projects.ErrNotPermitted)

	_, err = f.svc.Update(ctx, f.owner, 999, projects.Input{Title: ptr("Ghost")})
	assert.ErrorIs(t, err, projects.ErrNotFound)
}

func TestUpdate_AdminApproveAndReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	approved := testutil.NewTestProject(t, f.repo, f.owner.ID)
	p, err := f.svc.Update(ctx, f.admin, approved.ID, projects.Input{State: ptr(models.StateApprovedActive)})
	require.NoError(t, err)
	assert.Equal(t, models.StateApprovedActive, p.State)

	rejected := testutil.NewTestProject(t, f.repo, f.owner.ID)
	_, err = f.svc.Update(ctx, f.admin, rejected.ID, projects.Input{State: ptr(models.StateRejected)})
	assert.Equal(t, []string{"rejectionReason"}, fieldNames(t, err))

	_, err = f.svc.Update(ctx, f.admin, rejected.ID, projects.Input{
		State: ptr(models.StateRejected), RejectionReason: ptr(strings.Repeat("x", 501)),
	})
	assert.Equal(t, []string{"rejectionReason"}, fieldNames(t, err))

	p, err = f.svc.Update(ctx, f.admin, rejected.ID, projects.Input{
		State: ptr(models.StateRejected), RejectionReason: ptr("Please add the meeting point."),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StateRejected, p.State)
	assert.Equal(t, "Please add the meeting point.", p.RejectionReason)
}

func TestUpdate_AdminCannotEditContent(t *testing.T) {
	f := newFixture(t)
	p := testutil.NewTestProject(t, f.repo, f.owner.ID)

	_, err := f.svc.Update(context.Background(), f.admin, p.ID, projects.Input{
		Title: ptr("Renamed"), State: ptr(models.StateApprovedActive),
	})
	assert.ErrorIs(t, err, projects.ErrAdminEditOnly)

	_, err = f.svc.Update(context.Background(), f.admin, p.ID, projects.Input{})
	assert.Equal(t, []string{"state"}, fieldNames(t, err))
}

func TestUpdate_OwnerTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := testutil.NewTestProject(t, f.repo, f.owner.ID)
	_, err := f.svc.Update(ctx, f.owner, pending.ID, projects.Input{State: ptr(models.StateApprovedActive)})
	assert.Equal(t, []string{"state"}, fieldNames(t, err))

	active := testutil.NewTestProject(t, f.repo, f.owner.ID, testutil.WithState(models.StateApprovedActive))
	p, err := f.svc.Update(ctx, f.owner, active.ID, projects.Input{State: ptr(models.StateApprovedInactive)})
	require.NoError(t, err)
	assert.Equal(t, models.StateApprovedInactive, p.State)
}

func TestUpdate_ResubmitClearsRejectionReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := testutil.NewTestProject(t, f.repo, f.owner.ID, testutil.WithState(models.StateRejected), func(p *models.Project) {
		p.RejectionReason = "Missing dates"
	})

	updated, err := f.svc.Update(ctx, f.owner, p.ID, projects.Input{
		Description: ptr("Now with a meeting point."),
		State:       ptr(models.StatePendingApproval),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatePendingApproval, updated.State)
	assert.Empty(t, updated.RejectionReason)

	// Admins cannot act on rejected projects
	rejected := testutil.NewTestProject(t, f.repo, f.owner.ID, testutil.WithState(models.StateRejected))
	_, err = f.svc.Update(ctx, f.admin, rejected.ID, projects.Input{State: ptr(models.StateApprovedActive)})
	assert.Equal(t, []string{"state"}, fieldNames(t, err))
}

func TestUpdate_SameStateRefused(t *testing.T) {
	f := newFixture(t)
	p := testutil.NewTestProject(t, f.repo, f.owner.ID, testutil.WithState(models.StateApprovedActive))

	_, err := f.svc.Update(context.Background(), f.admin, p.ID, projects.Input{State: ptr(models.StateApprovedActive)})
	assert.Equal(t, []string{"state"}, fieldNames(t, err))
}

func TestUpdate_RejectionReasonNeedsReject(t *testing.T) {
	f := newFixture(t)
	p := testutil.NewTestProject(t, f.repo, f.owner.ID)

	_, err := f.svc.Update(context.Background(), f.owner, p.ID, projects.Input{RejectionReason: ptr("self-rejected")})
	assert.Equal(t, []string{"rejectionReason"}, fieldNames(t, err))
}

func TestUpdate_VersionConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := testutil.NewTestProject(t, f.repo, f.owner.ID)

	_, err := f.svc.Update(ctx, f.admin, p.ID, projects.Input{State: ptr(models.StateApprovedActive), Version: ptr(p.Version)})
	require.NoError(t, err)

	// A client still holding the old version loses
	_, err = f.svc.Update(ctx, f.owner, p.ID, projects.Input{Title: ptr("Stale"), Version: ptr(p.Version)})
	assert.ErrorIs(t, err, projects.ErrConflict)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestGet_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := testutil.NewTestProject(t, f.repo, f.owner.ID)
	active := testutil.NewTestProject(t, f.repo, f.owner.ID, testutil.WithState(models.StateApprovedActive))

	_, err := f.svc.Get(ctx, nil, active.ID)
	assert.NoError(t, err)

	_, err = f.svc.Get(ctx, nil, pending.ID)
	assert.ErrorIs(t, err, projects.ErrNotFound)

	_, err = f.svc.Get(ctx, f.owner, pending.ID)
	assert.NoError(t, err)

	_, err = f.svc.Get(ctx, f.other, pending.ID)
	assert.ErrorIs(t, err, projects.ErrNotFound)

	_, err = f.svc.Get(ctx, f.admin, pending.ID)
	assert.NoError(t, err)

	_, err = f.svc.Get(ctx, f.user, pending.ID)
	assert.ErrorIs(t, err, projects.ErrNotFound)
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	testutil.NewTestProject(t, f.repo, f.owner.ID)
	testutil.NewTestProject(t, f.repo, f.owner.ID, testutil.WithState(models.StateApprovedActive))
	testutil.NewTestProject(t, f.repo, f.other.ID, testutil.WithState(models.StateRejected))

	public, err := f.svc.ListPublic(ctx, repository.ProjectFilter{States: []models.ProjectState{models.StateRejected}})
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, models.StateApprovedActive, public[0].State)

	mine, err := f.svc.ListForOwner(ctx, f.owner, repository.ProjectFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	all, err := f.svc.ListForAdmin(ctx, repository.ProjectFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	rejected, err := f.svc.ListForAdmin(ctx, repository.ProjectFilter{States: []models.ProjectState{models.StateRejected}})
	require.NoError(t, err)
	assert.Len(t, rejected, 1)

	_, err = f.svc.ListForAdmin(ctx, repository.ProjectFilter{States: []models.ProjectState{"ARCHIVED"}})
	assert.Equal(t, []string{"state"}, fieldNames(t, err))

	_, err = f.svc.ListPublic(ctx, repository.ProjectFilter{Type: "WEEKLY"})
	assert.Equal(t, []string{"projectType"}, fieldNames(t, err))
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := testutil.NewTestProject(t, f.repo, f.owner.ID)

	assert.ErrorIs(t, f.svc.Delete(ctx, f.other, p.ID), projects.ErrNotOwner)
	require.NoError(t, f.svc.Delete(ctx, f.owner, p.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, f.owner, p.ID), projects.ErrNotFound)
}
