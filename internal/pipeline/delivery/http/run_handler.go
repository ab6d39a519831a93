package http

import (
	"errors"
	"net/http"
	"strconv"

	"golang-covid-sentiment/internal/pipeline/dto"
	"golang-covid-sentiment/internal/pipeline/service"
	"golang-covid-sentiment/pkg/common"
	"golang-covid-sentiment/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RunHandler handles HTTP requests for pipeline runs.
type RunHandler struct {
	runService service.RunService
	queue      service.RunQueue
	logger     *logger.Logger
}

// NewRunHandler creates a new RunHandler.
func NewRunHandler(runService service.RunService, queue service.RunQueue, logger *logger.Logger) *RunHandler {
	return &RunHandler{runService: runService, queue: queue, logger: logger}
}

// RegisterRoutes registers the run routes to the Echo group.
func (h *RunHandler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.CreateRun)
	g.GET("", h.ListRuns)
	g.GET("/:id", h.GetRun)
}

// CreateRun godoc
// @Summary Trigger a pipeline run
// @Description Queue a crawl and/or analyze run
// @Tags runs
// @Accept  json
// @Produce  json
// @Param   run  body    dto.CreateRunRequest  false  "Steps to run, default crawl then analyze"
// @Success 202 {object} dto.RunResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /runs [post]
func (h *RunHandler) CreateRun(c echo.Context) error {
	var req dto.CreateRunRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request payload"})
		}
	}

	run, err := h.queue.Enqueue(c.Request().Context(), common.RunTriggerManual, req.Steps)
	if errors.Is(err, service.ErrUnknownStep) {
		return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	}
	if err != nil {
		h.logger.Error("Failed to enqueue run", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to enqueue run"})
	}
	return c.JSON(http.StatusAccepted, dto.NewRunResponse(*run))
}

// ListRuns godoc
// @Summary List pipeline runs
// @Description List the most recent runs, newest first
// @Tags runs
// @Produce  json
// @Param   limit  query    int false  "Maximum number of runs" default(20)
// @Success 200 {array} dto.RunResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /runs [get]
func (h *RunHandler) ListRuns(c echo.Context) error {
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid limit"})
		}
		limit = v
	}

	runs, err := h.runService.ListRuns(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list runs", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list runs"})
	}
	resp := make([]dto.RunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, dto.NewRunResponse(run))
	}
	return c.JSON(http.StatusOK, resp)
}

// GetRun godoc
// @Summary Get a pipeline run
// @Description Get a single run and its report
// @Tags runs
// @Produce  json
// @Param   id  path    string true  "Run ID"
// @Success 200 {object} dto.RunResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /runs/{id} [get]
func (h *RunHandler) GetRun(c echo.Context) error {
	run, err := h.runService.GetRun(c.Request().Context(), c.Param("id"))
	if errors.Is(err, service.ErrRunNotFound) {
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Run not found"})
	}
	if err != nil {
		h.logger.Error("Failed to get run", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get run"})
	}
	return c.JSON(http.StatusOK, dto.NewRunResponse(*run))
}
