package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocops/bloc-planning-api/internal/dto"
	"github.com/blocops/bloc-planning-api/internal/models"
	appErrors "github.com/blocops/bloc-planning-api/pkg/errors"
)

func newPlanningRouter(generator planningGenerator, optimizer planningOptimizer, queries planningQuerier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewPlanningHandler(generator, optimizer, queries)
	h.Register(r.Group("/api/v1"))
	return r
}

func TestPlanningHandlerGenerate(t *testing.T) {
	generator := generatorStub{resp: &dto.GeneratePlanningResponse{
		Summary: dto.GenerationSummary{PlanningsCreated: 2},
	}}
	router := newPlanningRouter(generator, optimizerStub{}, querierStub{})

	body, _ := json.Marshal(dto.GeneratePlanningRequest{
		SiteID:      "site-1",
		StartDate:   "2025-03-10",
		EndDate:     "2025-03-14",
		InitiatorID: "user-1",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plannings/generate", bytes.NewReader(body))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"planningsCreated":2`)
}

func TestPlanningHandlerGenerateRejectsMalformedJSON(t *testing.T) {
	router := newPlanningRouter(generatorStub{}, optimizerStub{}, querierStub{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plannings/generate", bytes.NewReader([]byte("{")))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlanningHandlerOptimizeReturnsAssignmentsByDefault(t *testing.T) {
	optimizer := optimizerStub{result: &models.OptimizationResult{
		Score:      82.5,
		Iterations: 3,
		ViolatedRules: []models.RuleViolation{
			{RuleID: "r1"},
		},
		Assignments: []models.Assignment{{ID: "a1", StaffID: "staff-1", RoomID: "room-1"}},
	}}
	router := newPlanningRouter(generatorStub{}, optimizer, querierStub{})

	body, _ := json.Marshal(dto.OptimizePlanningRequest{
		SiteID:    "site-1",
		StaffIDs:  []string{"staff-1"},
		StartDate: "2025-03-10",
		EndDate:   "2025-03-14",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plannings/optimize", bytes.NewReader(body))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"a1"`, "plain response carries the accepted assignments")
	assert.NotContains(t, w.Body.String(), `"violated_rules"`, "breakdown is reserved for detailed=true")
}

func TestPlanningHandlerOptimizeDetailed(t *testing.T) {
	optimizer := optimizerStub{result: &models.OptimizationResult{
		Score:       90,
		Assignments: []models.Assignment{{ID: "a1", StaffID: "staff-1"}},
	}}
	router := newPlanningRouter(generatorStub{}, optimizer, querierStub{})

	body, _ := json.Marshal(dto.OptimizePlanningRequest{
		SiteID:    "site-1",
		StaffIDs:  []string{"staff-1"},
		StartDate: "2025-03-10",
		EndDate:   "2025-03-14",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plannings/optimize?detailed=true", bytes.NewReader(body))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"a1"`)
	assert.Contains(t, w.Body.String(), `"score":90`)
}

func TestPlanningHandlerList(t *testing.T) {
	querier := querierStub{list: []models.DayPlanning{
		{ID: "plan-1", SiteID: "site-1", Date: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
	}}
	router := newPlanningRouter(generatorStub{}, optimizerStub{}, querier)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/plannings?siteId=site-1&from=2025-03-10&to=2025-03-14", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "plan-1")
}

func TestPlanningHandlerGetNotFound(t *testing.T) {
	querier := querierStub{getErr: appErrors.Clone(appErrors.ErrNotFound, "planning not found")}
	router := newPlanningRouter(generatorStub{}, optimizerStub{}, querier)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/plannings/missing", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Stubs ---

type generatorStub struct {
	resp *dto.GeneratePlanningResponse
	err  error
}

func (s generatorStub) Generate(ctx context.Context, req dto.GeneratePlanningRequest) (*dto.GeneratePlanningResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.resp != nil {
		return s.resp, nil
	}
	return &dto.GeneratePlanningResponse{}, nil
}

type optimizerStub struct {
	result *models.OptimizationResult
	err    error
}

func (s optimizerStub) Optimize(ctx context.Context, req dto.OptimizePlanningRequest) (*models.OptimizationResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &models.OptimizationResult{}, nil
}

type querierStub struct {
	list   []models.DayPlanning
	get    *models.DayPlanning
	getErr error
}

func (s querierStub) List(ctx context.Context, query dto.PlanningRangeQuery) ([]models.DayPlanning, error) {
	return s.list, nil
}

func (s querierStub) Get(ctx context.Context, id string) (*models.DayPlanning, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.get != nil {
		return s.get, nil
	}
	return &models.DayPlanning{ID: id}, nil
}
