// Package api implements the JSON HTTP API: project and item CRUD, the
// reaudit and review workflow, report exports, health, and metrics.
package api

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cfornesa/ethics-risk-audit-assistant/internal/conf"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/datastore"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/errors"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/export"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/items"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/logging"
)

// Controller manages the API routes and handlers.
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	DS       datastore.Interface
	Settings *conf.Settings
	Items    *items.Service
	Export   *export.Service
	registry *prometheus.Registry
	logger   *slog.Logger
}

// New creates the API controller and registers all routes on a fresh
// echo instance. registry may be nil, in which case /metrics serves the
// default registry.
func New(settings *conf.Settings, ds datastore.Interface, itemsSvc *items.Service,
	exportSvc *export.Service, registry *prometheus.Registry) *Controller {

	logger := logging.ForService("api")
	if logger == nil {
		logger = slog.Default().With("service", "api")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	c := &Controller{
		Echo:     e,
		DS:       ds,
		Settings: settings,
		Items:    itemsSvc,
		Export:   exportSvc,
		registry: registry,
		logger:   logger,
	}
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group = c.Echo.Group("/api/v1")

	c.Echo.GET("/healthz", c.Health)
	if c.registry != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(
			promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})))
	} else {
		c.Echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	// Projects
	c.Group.GET("/projects", c.ListProjects)
	c.Group.POST("/projects", c.CreateProject)
	c.Group.GET("/projects/:id", c.GetProject)
	c.Group.PUT("/projects/:id", c.UpdateProject)
	c.Group.DELETE("/projects/:id", c.DeleteProject)
	c.Group.GET("/projects/:id/statistics", c.ProjectStatistics)
	c.Group.GET("/projects/:id/export/markdown", c.ExportMarkdown)
	c.Group.GET("/projects/:id/export/html", c.ExportHTML)

	// Items
	c.Group.GET("/items", c.ListItems)
	c.Group.POST("/items", c.CreateItem)
	c.Group.GET("/items/:id", c.GetItem)
	c.Group.PUT("/items/:id", c.UpdateItem)
	c.Group.DELETE("/items/:id", c.DeleteItem)
	c.Group.POST("/items/:id/restore", c.RestoreItem)
	c.Group.POST("/items/:id/reaudit", c.ReauditItem)
	c.Group.POST("/items/:id/review", c.MarkItemReviewed)
}

// Start begins serving on the configured port. Blocks until the server
// stops.
func (c *Controller) Start() error {
	return c.Echo.Start(":" + c.Settings.WebServer.Port)
}

// ErrorResponse is the uniform JSON error body.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

func generateCorrelationID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(b)
}

// HandleError constructs the JSON error response and logs it with a
// correlation ID so a client report can be matched to the server log.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	// Validation and not-found categories carry their own status.
	switch {
	case errors.HasCategory(err, errors.CategoryNotFound):
		code = http.StatusNotFound
	case errors.HasCategory(err, errors.CategoryValidation):
		code = http.StatusUnprocessableEntity
	}

	resp := &ErrorResponse{
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
	if err != nil {
		resp.Error = err.Error()
	}

	c.logger.Error("api request failed",
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"status", code,
		"correlation_id", resp.CorrelationID,
		"error", err)

	return ctx.JSON(code, resp)
}

// Health reports liveness plus a database reachability flag.
func (c *Controller) Health(ctx echo.Context) error {
	status := map[string]any{
		"status": "ok",
	}
	if _, err := c.DS.GetProjects(1, 0); err != nil {
		status["status"] = "degraded"
		status["database"] = "unreachable"
		return ctx.JSON(http.StatusServiceUnavailable, status)
	}
	status["database"] = "ok"
	return ctx.JSON(http.StatusOK, status)
}
