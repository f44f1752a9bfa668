// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"strings"

	"codeberg.org/oliverandrich/volunteerhub/internal/models"
	"github.com/vinovest/sqlx"
)

// ProjectFilter narrows a project listing. Zero fields do not filter.
type ProjectFilter struct { //nolint:govet // fieldalignment: readability over optimization
	States  []models.ProjectState
	OwnerID int64
	Type    models.ProjectType
	Region  string
	Issue   models.IssueAddressed
	Query   string
	Limit   int
	Offset  int
}

func (f ProjectFilter) where() (string, []any, error) {
	var (
		conds []string
		args  []any
	)
	if len(f.States) > 0 {
		cond, inArgs, err := sqlx.In(`state IN (?)`, f.States)
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, cond)
		args = append(args, inArgs...)
	}
	if f.OwnerID != 0 {
		conds = append(conds, `owner_id = ?`)
		args = append(args, f.OwnerID)
	}
	if f.Type != "" {
		conds = append(conds, `project_type = ?`)
		args = append(args, f.Type)
	}
	if f.Region != "" {
		conds = append(conds, `region = ? COLLATE NOCASE`)
		args = append(args, f.Region)
	}
	if f.Issue != "" {
		conds = append(conds, `EXISTS (SELECT 1 FROM json_each(projects.issues_addressed) WHERE json_each.value = ?)`)
		args = append(args, f.Issue)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		conds = append(conds, `(title LIKE ? OR description LIKE ?)`)
		like := "%" + q + "%"
		args = append(args, like, like)
	}
	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// CreateProject inserts a project and fills in its ID, version and timestamps.
func (r *Repository) CreateProject(ctx context.Context, p *models.Project) error {
	now := r.timestamp()
	if p.State == "" {
		p.State = models.StatePendingApproval
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (owner_id, title, description, cover_image_url, region, location, time_of_day,
		 issues_addressed, volunteer_requirements, project_type, start_date, end_date, frequency,
		 state, rejection_reason, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		p.OwnerID, p.Title, p.Description, p.CoverImageURL, p.Region, p.Location, p.TimeOfDay,
		p.IssuesAddressed, p.VolunteerRequirements, p.Type, p.StartDate, p.EndDate, p.Frequency,
		p.State, p.RejectionReason, now, now)
	if err != nil {
		return wrapError(err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	p.Version = 1
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

// GetProject retrieves a project by ID.
func (r *Repository) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	var p models.Project
	if err := r.db.GetContext(ctx, &p, `SELECT * FROM projects WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &p, nil
}

// ListProjects returns the projects matching filter, newest first.
func (r *Repository) ListProjects(ctx context.Context, filter ProjectFilter) ([]models.Project, error) {
	where, args, err := filter.where()
	if err != nil {
		return nil, err
	}
	query := `SELECT * FROM projects` + where + ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	projects := []models.Project{}
	if err := r.db.SelectContext(ctx, &projects, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return projects, nil
}

// UpdateProject writes every mutable column of p if the stored version
// still equals p.Version. On success p.Version is advanced.
func (r *Repository) UpdateProject(ctx context.Context, p *models.Project) error {
	now := r.timestamp()
	res, err := r.db.ExecContext(ctx,
		`UPDATE projects SET title = ?, description = ?, cover_image_url = ?, region = ?, location = ?,
		 time_of_day = ?, issues_addressed = ?, volunteer_requirements = ?, project_type = ?,
		 start_date = ?, end_date = ?, frequency = ?, state = ?, rejection_reason = ?,
		 version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		p.Title, p.Description, p.CoverImageURL, p.Region, p.Location,
		p.TimeOfDay, p.IssuesAddressed, p.VolunteerRequirements, p.Type,
		p.StartDate, p.EndDate, p.Frequency, p.State, p.RejectionReason,
		now, p.ID, p.Version)
	if err != nil {
		return wrapError(err)
	}
	if err := r.checkVersioned(ctx, res.RowsAffected, p.ID); err != nil {
		return err
	}
	p.Version++
	p.UpdatedAt = now
	return nil
}

// UpdateProjectState moves a project to state if its stored version equals
// version. The rejection reason is replaced along with the state.
func (r *Repository) UpdateProjectState(ctx context.Context, id, version int64, state models.ProjectState, reason string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE projects SET state = ?, rejection_reason = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		state, reason, r.timestamp(), id, version)
	if err != nil {
		return wrapError(err)
	}
	return r.checkVersioned(ctx, res.RowsAffected, id)
}

// DeleteProject deletes a project owned by ownerID.
func (r *Repository) DeleteProject(ctx context.Context, id, ownerID int64) error {
	return r.execOne(ctx, `DELETE FROM projects WHERE id = ? AND owner_id = ?`, id, ownerID)
}

// ListExpiredEvents returns active event projects whose end date lies
// before the given day.
func (r *Repository) ListExpiredEvents(ctx context.Context, before models.Date) ([]models.Project, error) {
	projects := []models.Project{}
	err := r.db.SelectContext(ctx, &projects,
		`SELECT * FROM projects
		 WHERE project_type = ? AND state = ? AND end_date IS NOT NULL AND end_date < ?
		 ORDER BY id`,
		models.ProjectTypeEvent, models.StateApprovedActive, before)
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// checkVersioned tells a missing row apart from a lost version race after
// a conditional update.
func (r *Repository) checkVersioned(ctx context.Context, rowsAffected func() (int64, error), id int64) error {
	n, err := rowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM projects WHERE id = ?)`, id); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStale
}
