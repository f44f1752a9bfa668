// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"codeberg.org/oliverandrich/volunteerhub/internal/middleware"
	"codeberg.org/oliverandrich/volunteerhub/internal/models"
	"github.com/labstack/echo/v4"
)

// Register mounts every route on e.
func (h *Handlers) Register(e *echo.Echo) {
	e.GET("/health", h.Health)

	api := e.Group("/api/v1")
	csrf := h.cfg.Session.CSRFHeader
	require := func(roles ...models.Role) echo.MiddlewareFunc {
		return middleware.RequireRole(h.sessions, csrf, roles...)
	}

	for _, role := range models.Roles {
		g := api.Group("/" + role.PathSegment())
		g.POST("/login", h.Login(role))
		g.DELETE("/logout", h.Logout, require(role))
		g.GET("/me", h.Me, require(role))
		g.PUT("/password", h.ChangePassword, require(role))
	}

	for _, role := range []models.Role{models.RoleUser, models.RoleProjectOwner} {
		seg := "/" + role.PathSegment()
		api.POST(seg, h.SignUp(role))
		api.PUT(seg+"/confirmation", h.Confirm(role))
		api.POST(seg+"/confirmation", h.ResendConfirmation(role))
		api.POST(seg+"/password/reset", h.RequestReset(role))
		api.GET(seg+"/password/reset/edit", h.EditReset(role))
		api.PUT(seg+"/password/reset", h.CompleteReset(role))
	}

	api.GET("/admins/cron_job_time", h.CronJobTime, require(models.RoleAdmin))
	api.GET("/project_owners/cron_job_time", h.CronJobTime, require(models.RoleProjectOwner))
	api.GET("/admins/expiry_report", h.ExpiryReport, require(models.RoleAdmin))

	api.GET("/projects", h.ListProjects)
	api.GET("/projects/:id", h.GetProject, middleware.LoadAccount(h.sessions))
	api.POST("/projects", h.CreateProject, require(models.RoleProjectOwner))
	api.PUT("/projects/:id", h.UpdateProject, require(models.RoleProjectOwner, models.RoleAdmin))
	api.DELETE("/projects/:id", h.DeleteProject, require(models.RoleProjectOwner))
	api.GET("/project_owners/projects", h.ListOwnProjects, require(models.RoleProjectOwner))
	api.GET("/admins/projects", h.ListAllProjects, require(models.RoleAdmin))
}
