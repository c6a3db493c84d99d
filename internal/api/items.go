package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/cfornesa/ethics-risk-audit-assistant/internal/datastore"
)

// ItemRequest is the writable subset of an item. Audit-result fields are
// never writable through the API.
type ItemRequest struct {
	ProjectID   uint           `json:"project_id"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	ContentType string         `json:"content_type"`
	Metadata    map[string]any `json:"metadata"`
	// Reaudit requests a fresh audit after an update.
	Reaudit bool `json:"reaudit"`
}

// ListItems handles GET /api/v1/items.
func (c *Controller) ListItems(ctx echo.Context) error {
	filter := &datastore.ItemFilter{
		Status:    ctx.QueryParam("status"),
		RiskLevel: ctx.QueryParam("risk_level"),
	}
	if v := ctx.QueryParam("project_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return c.HandleError(ctx, err, "Invalid project_id filter", http.StatusBadRequest)
		}
		filter.ProjectID = uint(id)
	}
	if v := ctx.QueryParam("requires_review"); v != "" {
		requires := v == "true" || v == "1"
		filter.RequiresReview = &requires
	}
	filter.Limit, _ = strconv.Atoi(ctx.QueryParam("limit"))
	filter.Offset, _ = strconv.Atoi(ctx.QueryParam("offset"))
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}

	list, err := c.Items.ListItems(filter)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list items", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, list)
}

// CreateItem handles POST /api/v1/items. The created item starts pending
// and its audit is queued asynchronously; the response never contains a
// verdict.
func (c *Controller) CreateItem(ctx echo.Context) error {
	var req ItemRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	item := &datastore.Item{
		ProjectID:   req.ProjectID,
		Title:       req.Title,
		Content:     req.Content,
		ContentType: req.ContentType,
		Metadata:    req.Metadata,
	}
	if err := c.Items.CreateItem(item); err != nil {
		return c.HandleError(ctx, err, "Failed to create item", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusCreated, item)
}

// GetItem handles GET /api/v1/items/:id.
func (c *Controller) GetItem(ctx echo.Context) error {
	id, err := parseIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid item ID", http.StatusBadRequest)
	}

	item, err := c.Items.GetItem(id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get item", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, item)
}

// UpdateItem handles PUT /api/v1/items/:id. With "reaudit": true in the
// body the previous verdict is cleared and a new audit queued.
func (c *Controller) UpdateItem(ctx echo.Context) error {
	id, err := parseIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid item ID", http.StatusBadRequest)
	}

	item, err := c.Items.GetItem(id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get item", http.StatusInternalServerError)
	}

	var req ItemRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	item.Title = req.Title
	item.Content = req.Content
	if req.ContentType != "" {
		item.ContentType = req.ContentType
	}
	if req.Metadata != nil {
		item.Metadata = req.Metadata
	}

	if err := c.Items.UpdateItem(&item, req.Reaudit); err != nil {
		return c.HandleError(ctx, err, "Failed to update item", http.StatusInternalServerError)
	}

	updated, err := c.Items.GetItem(id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to reload item", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, updated)
}

// DeleteItem handles DELETE /api/v1/items/:id.
func (c *Controller) DeleteItem(ctx echo.Context) error {
	id, err := parseIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid item ID", http.StatusBadRequest)
	}

	if err := c.Items.DeleteItem(id); err != nil {
		return c.HandleError(ctx, err, "Failed to delete item", http.StatusInternalServerError)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// RestoreItem handles POST /api/v1/items/:id/restore.
func (c *Controller) RestoreItem(ctx echo.Context) error {
	id, err := parseIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid item ID", http.StatusBadRequest)
	}

	item, err := c.Items.RestoreItem(id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to restore item", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, item)
}

// ReauditItem handles POST /api/v1/items/:id/reaudit. The verdict and
// attempt history are cleared and a fresh audit queued.
func (c *Controller) ReauditItem(ctx echo.Context) error {
	id, err := parseIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid item ID", http.StatusBadRequest)
	}

	if err := c.Items.Reaudit(id); err != nil {
		return c.HandleError(ctx, err, "Failed to queue reaudit", http.StatusInternalServerError)
	}

	item, err := c.Items.GetItem(id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to reload item", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusAccepted, item)
}

// MarkItemReviewed handles POST /api/v1/items/:id/review.
func (c *Controller) MarkItemReviewed(ctx echo.Context) error {
	id, err := parseIDParam(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid item ID", http.StatusBadRequest)
	}

	if err := c.Items.MarkReviewed(id); err != nil {
		return c.HandleError(ctx, err, "Failed to mark item reviewed", http.StatusInternalServerError)
	}

	item, err := c.Items.GetItem(id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to reload item", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, item)
}
