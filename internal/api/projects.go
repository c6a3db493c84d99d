package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/cfornesa/ethics-risk-audit-assistant/internal/datastore"
)

// ProjectRequest is the writable subset of a project.
type ProjectRequest struct {
	OwnerID     uint           `json:"owner_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Status      string         `json:"status"`
	Metadata    map[string]any `json:"metadata"`
}

func parseIDParam(ctx echo.Context) (uint, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// ListProjects handles GET /api/v1/projects.
func (c *Controller) ListProjects(ctx echo.Context) error {
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))
	offset, _ := strconv.Atoi(ctx.QueryParam("offset"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	projects, err := c.Items.ListProjects(limit, offset)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list projects", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, projects)
}

// CreateProject handles POST /api/v1/projects.
func (c *Controller) CreateProject(ctx echo.Context) error {
	var req ProjectRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	project := &datastore.Project{
		OwnerID:     req.OwnerID,
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		Metadata:    req.Metadata,
	}
	if err := c.Items.CreateProject(project); err != nil {
		return c.HandleError(ctx, err, "Failed to create project", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusCreated, project)
}

// GetProject handles GET /api/v1/projects/:id.
func (c *Controller) GetProject(ctx echo.Context) error {
	id, err := parseIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid project ID", http.StatusBadRequest)
	}

	project, err := c.Items.GetProject(id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get project", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, project)
}

// UpdateProject handles PUT /api/v1/projects/:id.
func (c *Controller) UpdateProject(ctx echo.Context) error {
	id, err := parseIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid project ID", http.StatusBadRequest)
	}

	project, err := c.Items.GetProject(id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get project", http.StatusInternalServerError)
	}

	var req ProjectRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	project.Name = req.Name
	project.Description = req.Description
	if req.Status != "" {
		project.Status = req.Status
	}
	if req.Metadata != nil {
		project.Metadata = req.Metadata
	}

	if err := c.Items.UpdateProject(&project); err != nil {
		return c.HandleError(ctx, err, "Failed to update project", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, project)
}

// DeleteProject handles DELETE /api/v1/projects/:id. Items are
// soft-deleted alongside the project.
func (c *Controller) DeleteProject(ctx echo.Context) error {
	id, err := parseIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid project ID", http.StatusBadRequest)
	}

	if err := c.Items.DeleteProject(id); err != nil {
		return c.HandleError(ctx, err, "Failed to delete project", http.StatusInternalServerError)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ProjectStatistics handles GET /api/v1/projects/:id/statistics.
func (c *Controller) ProjectStatistics(ctx echo.Context) error {
	id, err := parseIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid project ID", http.StatusBadRequest)
	}

	stats, err := c.Items.ProjectStatistics(id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to compute statistics", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, stats)
}

// ExportMarkdown handles GET /api/v1/projects/:id/export/markdown.
func (c *Controller) ExportMarkdown(ctx echo.Context) error {
	id, err := parseIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid project ID", http.StatusBadRequest)
	}

	md, err := c.Export.Markdown(id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to generate report", http.StatusInternalServerError)
	}
	return ctx.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
}

// ExportHTML handles GET /api/v1/projects/:id/export/html.
func (c *Controller) ExportHTML(ctx echo.Context) error {
	id, err := parseIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid project ID", http.StatusBadRequest)
	}

	page, err := c.Export.HTML(id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to generate report", http.StatusInternalServerError)
	}
	return ctx.HTMLBlob(http.StatusOK, page)
}
