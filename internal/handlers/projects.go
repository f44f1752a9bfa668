// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"codeberg.org/oliverandrich/volunteerhub/internal/apperr"
	"codeberg.org/oliverandrich/volunteerhub/internal/auth"
	"codeberg.org/oliverandrich/volunteerhub/internal/models"
	"codeberg.org/oliverandrich/volunteerhub/internal/repository"
	"codeberg.org/oliverandrich/volunteerhub/internal/services/projects"
	"github.com/labstack/echo/v4"
)

// ProjectRequest wraps the project input in the request body.
type ProjectRequest struct {
	Project *projects.Input `json:"project"`
}

// ProjectResponse wraps a single project.
type ProjectResponse struct {
	Project *models.Project `json:"project"`
}

// ProjectListResponse wraps a project listing.
type ProjectListResponse struct {
	Projects []models.Project `json:"projects"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

func bindProject(c echo.Context) (projects.Input, error) {
	var req ProjectRequest
	if err := bind(c, &req); err != nil {
		return projects.Input{}, err
	}
	if req.Project == nil {
		return projects.Input{}, apperr.Validation(apperr.FieldError{Field: "project", Message: "can't be blank"})
	}
	return *req.Project, nil
}

// parseFilter reads listing filters from the query string.
func parseFilter(c echo.Context) (repository.ProjectFilter, error) {
	filter := repository.ProjectFilter{
		Type:   models.ProjectType(c.QueryParam("projectType")),
		Region: c.QueryParam("region"),
		Issue:  models.IssueAddressed(c.QueryParam("issue")),
		Query:  c.QueryParam("q"),
	}

	for _, raw := range c.QueryParams()["state"] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filter.States = append(filter.States, models.ProjectState(s))
			}
		}
	}

	var fields apperr.Fields
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &filter.Limit}, {"offset", &filter.Offset}} {
		raw := c.QueryParam(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fields.Add(p.name, "must be a non-negative integer")
			continue
		}
		*p.dst = n
	}
	if filter.Issue != "" && !filter.Issue.Valid() {
		fields.Add("issue", "is not a known issue")
	}
	return filter, fields.Err()
}

func listResponse(c echo.Context, list []models.Project, filter repository.ProjectFilter) error {
	limit := filter.Limit
	if limit <= 0 {
		limit = projects.DefaultLimit
	}
	return c.JSON(http.StatusOK, ProjectListResponse{
		Projects: list,
		Limit:    min(limit, projects.MaxLimit),
		Offset:   filter.Offset,
	})
}

// ListProjects lists active projects for everyone.
func (h *Handlers) ListProjects(c echo.Context) error {
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}
	list, err := h.projects.ListPublic(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return listResponse(c, list, filter)
}

// ListOwnProjects lists the signed-in owner's projects in every state.
func (h *Handlers) ListOwnProjects(c echo.Context) error {
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	list, err := h.projects.ListForOwner(ctx, auth.GetAccount(ctx), filter)
	if err != nil {
		return err
	}
	return listResponse(c, list, filter)
}

// ListAllProjects lists projects in any state for admins.
func (h *Handlers) ListAllProjects(c echo.Context) error {
	filter, err := parseFilter(c)
	if err != nil {
		return err
	}
	list, err := h.projects.ListForAdmin(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return listResponse(c, list, filter)
}

// GetProject returns one project as visible to the caller.
func (h *Handlers) GetProject(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	p, err := h.projects.Get(ctx, auth.GetAccount(ctx), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ProjectResponse{Project: p})
}

// CreateProject stores a new project for the signed-in owner.
func (h *Handlers) CreateProject(c echo.Context) error {
	in, err := bindProject(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	owner, ok := auth.GetAccount(ctx).(*models.ProjectOwner)
	if !ok {
		return projects.ErrNotPermitted
	}
	p, err := h.projects.Create(ctx, owner, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ProjectResponse{Project: p})
}

// UpdateProject edits a project or moves it through the approval workflow.
func (h *Handlers) UpdateProject(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	in, err := bindProject(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	p, err := h.projects.Update(ctx, auth.GetAccount(ctx), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ProjectResponse{Project: p})
}

// DeleteProject removes a project of the signed-in owner.
func (h *Handlers) DeleteProject(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.projects.Delete(ctx, auth.GetAccount(ctx), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
