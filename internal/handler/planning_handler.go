package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/blocops/bloc-planning-api/internal/dto"
	"github.com/blocops/bloc-planning-api/internal/models"
	appErrors "github.com/blocops/bloc-planning-api/pkg/errors"
	"github.com/blocops/bloc-planning-api/pkg/response"
)

type planningGenerator interface {
	Generate(ctx context.Context, req dto.GeneratePlanningRequest) (*dto.GeneratePlanningResponse, error)
}

type planningOptimizer interface {
	Optimize(ctx context.Context, req dto.OptimizePlanningRequest) (*models.OptimizationResult, error)
}

type planningQuerier interface {
	List(ctx context.Context, query dto.PlanningRangeQuery) ([]models.DayPlanning, error)
	Get(ctx context.Context, id string) (*models.DayPlanning, error)
}

// PlanningHandler exposes planning generation, optimization and reads.
type PlanningHandler struct {
	generator planningGenerator
	optimizer planningOptimizer
	queries   planningQuerier
}

// NewPlanningHandler constructs the handler.
func NewPlanningHandler(generator planningGenerator, optimizer planningOptimizer, queries planningQuerier) *PlanningHandler {
	return &PlanningHandler{generator: generator, optimizer: optimizer, queries: queries}
}

// Generate expands templates into day plannings over a date range.
func (h *PlanningHandler) Generate(c *gin.Context) {
	var req dto.GeneratePlanningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.generator.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Optimize runs the rule-based improvement loop over a persisted range.
// The plain response is the accepted assignments; detailed=true returns the
// full result with score, violations and metrics.
func (h *PlanningHandler) Optimize(c *gin.Context) {
	var req dto.OptimizePlanningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid optimize payload"))
		return
	}
	result, err := h.optimizer.Optimize(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	detailed, _ := strconv.ParseBool(c.DefaultQuery("detailed", "false"))
	if detailed {
		response.JSON(c, http.StatusOK, result, nil)
		return
	}
	response.JSON(c, http.StatusOK, result.Assignments, nil)
}

// List returns plannings for a site over an inclusive date range.
func (h *PlanningHandler) List(c *gin.Context) {
	var query dto.PlanningRangeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	plannings, err := h.queries.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plannings, nil)
}

// Get returns one planning with its assignments and conflicts.
func (h *PlanningHandler) Get(c *gin.Context) {
	planning, err := h.queries.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, planning, nil)
}

// Register mounts the planning routes on the given group.
func (h *PlanningHandler) Register(group *gin.RouterGroup) {
	group.POST("/plannings/generate", h.Generate)
	group.POST("/plannings/optimize", h.Optimize)
	group.GET("/plannings", h.List)
	group.GET("/plannings/:id", h.Get)
}
