package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blocops/bloc-planning-api/internal/dto"
	"github.com/blocops/bloc-planning-api/internal/models"
	appErrors "github.com/blocops/bloc-planning-api/pkg/errors"
	"github.com/blocops/bloc-planning-api/pkg/events"
)

func TestOptimizerPerfectScheduleNeedsNoIterations(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	fx := newOptimizerFixture(t, optimizerFixtureConfig{
		plannings: []models.DayPlanning{
			planningWithStaff("plan-1", day, map[string]string{"room-1": "staff-1"}),
			planningWithStaff("plan-2", day.AddDate(0, 0, 1), map[string]string{"room-1": "staff-2"}),
		},
		evaluator: evaluatorFunc(func(_ context.Context, _ []models.Assignment, _ []models.Rule) ([]models.RuleViolation, error) {
			return nil, nil
		}),
	})

	result, err := fx.svc.Optimize(context.Background(), optimizeRequest(day, day.AddDate(0, 0, 1)))
	require.NoError(t, err)

	assert.Zero(t, result.Iterations)
	assert.InDelta(t, 100.0, result.Score, 0.001)
	assert.Empty(t, result.ViolatedRules)
	assert.Len(t, result.Assignments, 2)
	assert.Contains(t, fx.events.names, events.RulesLoaded)
	assert.Contains(t, fx.events.names, events.PlanningGeneratedDetailed)
}

func TestOptimizerRebalancesOverloadedStaff(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	// Four days, all assigned to staff-1. The balance rule flags the overload
	// until assignments spread across the pool.
	plannings := make([]models.DayPlanning, 4)
	for i := range plannings {
		plannings[i] = planningWithStaff("plan-"+models.DateKey(day.AddDate(0, 0, i)),
			day.AddDate(0, 0, i), map[string]string{"room-1": "staff-1"})
	}

	fx := newOptimizerFixture(t, optimizerFixtureConfig{
		plannings: plannings,
		evaluator: balanceEvaluator{},
	})

	result, err := fx.svc.Optimize(context.Background(), optimizeRequest(day, day.AddDate(0, 0, 3)))
	require.NoError(t, err)

	assert.Equal(t, 3, result.Iterations)
	assert.Len(t, result.Assignments, 4, "rebalancing substitutes, never drops work")

	counts := map[string]int{}
	for _, a := range result.Assignments {
		counts[a.StaffID]++
	}
	assert.Equal(t, 2, counts["staff-1"])
	assert.Equal(t, 2, counts["staff-2"])
	assert.InDelta(t, 40.0, result.Score, 0.001)
	assert.Len(t, result.ViolatedRules, 1)
}

func TestOptimizerSkipsAbsentSubstitutes(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	fx := newOptimizerFixture(t, optimizerFixtureConfig{
		plannings: []models.DayPlanning{
			planningWithStaff("plan-1", day, map[string]string{"room-1": "staff-1", "room-2": "staff-1"}),
		},
		absences: []models.Absence{
			{StaffID: strPtr("staff-2"), StartDate: day, EndDate: day, Status: models.AbsenceStatusApproved},
		},
		evaluator: balanceEvaluator{},
	})

	result, err := fx.svc.Optimize(context.Background(), optimizeRequest(day, day))
	require.NoError(t, err)

	// the only substitute is absent, so the problem assignment is removed
	assert.Equal(t, 1, result.Iterations)
	assert.Len(t, result.Assignments, 1)
	for _, a := range result.Assignments {
		assert.NotEqual(t, "staff-2", a.StaffID)
	}
	assert.Empty(t, result.ViolatedRules)
}

func TestOptimizerStopsAtIterationCap(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	// Twelve days all on staff-1: each round moves one assignment to staff-2
	// and strictly improves equity, so the balance violations never clear
	// within a three-attempt budget and only the cap can end the loop.
	plannings := make([]models.DayPlanning, 12)
	for i := range plannings {
		plannings[i] = planningWithStaff("plan-"+models.DateKey(day.AddDate(0, 0, i)),
			day.AddDate(0, 0, i), map[string]string{"room-1": "staff-1"})
	}

	fx := newOptimizerFixture(t, optimizerFixtureConfig{
		plannings:   plannings,
		evaluator:   balanceEvaluator{},
		maxAttempts: 3,
	})

	result, err := fx.svc.Optimize(context.Background(), optimizeRequest(day, day.AddDate(0, 0, 11)))
	require.NoError(t, err)

	assert.Equal(t, 3, result.Iterations, "loop ends at the configured cap")
	assert.NotEmpty(t, result.ViolatedRules, "cap fires while violations remain")

	counts := map[string]int{}
	for _, a := range result.Assignments {
		counts[a.StaffID]++
	}
	assert.Equal(t, 9, counts["staff-1"])
	assert.Equal(t, 3, counts["staff-2"])

	// the starting schedule scores 20 (equity 0); every accepted round raised it
	assert.Greater(t, result.Score, 20.0)
	assert.InDelta(t, 26.667, result.Score, 0.01)
}

func TestOptimizerRejectsNoOpSubstitution(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	// The evaluator flags one violation no matter what, so substituting for
	// the problem assignment scores exactly the same as removing it. The
	// strict-improvement rule must then keep the removal, and the iteration
	// as a whole must be rejected, leaving the original schedule in place.
	fx := newOptimizerFixture(t, optimizerFixtureConfig{
		plannings: []models.DayPlanning{
			planningWithStaff("plan-1", day, map[string]string{"room-1": "staff-1"}),
			planningWithStaff("plan-2", day.AddDate(0, 0, 1), map[string]string{"room-1": "staff-2"}),
		},
		evaluator: evaluatorFunc(func(_ context.Context, _ []models.Assignment, _ []models.Rule) ([]models.RuleViolation, error) {
			return []models.RuleViolation{{RuleID: "rule-balance", RuleName: "balance", Message: "stuck"}}, nil
		}),
	})

	result, err := fx.svc.Optimize(context.Background(), optimizeRequest(day, day.AddDate(0, 0, 1)))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Iterations)
	require.Len(t, result.Assignments, 2, "no-op candidate must not displace the original")
	counts := map[string]int{}
	for _, a := range result.Assignments {
		counts[a.StaffID]++
	}
	assert.Equal(t, 1, counts["staff-1"])
	assert.Equal(t, 1, counts["staff-2"])
	assert.Len(t, result.ViolatedRules, 1)
}

func TestOptimizerRuleEngineFailureIsFatal(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	fx := newOptimizerFixture(t, optimizerFixtureConfig{
		plannings: []models.DayPlanning{
			planningWithStaff("plan-1", day, map[string]string{"room-1": "staff-1"}),
		},
		evaluator: evaluatorFunc(func(_ context.Context, _ []models.Assignment, _ []models.Rule) ([]models.RuleViolation, error) {
			return nil, errors.New("engine unreachable")
		}),
	})

	_, err := fx.svc.Optimize(context.Background(), optimizeRequest(day, day))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRuleEngine.Code, appErrors.FromError(err).Code)
}

func TestOptimizerRequiresPlannings(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	fx := newOptimizerFixture(t, optimizerFixtureConfig{
		evaluator: balanceEvaluator{},
	})

	_, err := fx.svc.Optimize(context.Background(), optimizeRequest(day, day))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestOptimizerLoadsRequestedRules(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	fx := newOptimizerFixture(t, optimizerFixtureConfig{
		plannings: []models.DayPlanning{
			planningWithStaff("plan-1", day, map[string]string{"room-1": "staff-1"}),
		},
		evaluator: evaluatorFunc(func(_ context.Context, _ []models.Assignment, _ []models.Rule) ([]models.RuleViolation, error) {
			return nil, nil
		}),
	})

	req := optimizeRequest(day, day)
	req.RuleIDs = []string{"missing-rule"}
	_, err := fx.svc.Optimize(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

// --- Fixtures ---

type optimizerFixtureConfig struct {
	plannings   []models.DayPlanning
	absences    []models.Absence
	evaluator   RuleEvaluator
	maxAttempts int
}

type optimizerFixture struct {
	svc    *PlanningOptimizerService
	events *eventRecorder
}

func newOptimizerFixture(t *testing.T, cfg optimizerFixtureConfig) *optimizerFixture {
	t.Helper()
	if cfg.maxAttempts == 0 {
		cfg.maxAttempts = 10
	}
	recorder := &eventRecorder{}
	svc := NewPlanningOptimizerService(
		ruleSourceStub{active: []models.Rule{{ID: "rule-balance", Name: "balance", Type: models.RuleTypeAllocation, IsActive: true}}},
		staffSourceStub{items: []models.StaffMember{
			{ID: "staff-1", Role: models.StaffRoleAnesthetist, IsActive: true},
			{ID: "staff-2", Role: models.StaffRoleAnesthetist, IsActive: true},
		}},
		detailedPlanningStub{items: cfg.plannings},
		absenceSourceStub{items: cfg.absences},
		cfg.evaluator,
		nil,
		NewScorer(0.6, 0.2, 0.2),
		recorder,
		NewMetricsService(),
		validator.New(),
		zap.NewNop(),
		OptimizerOptions{MaxAttempts: cfg.maxAttempts},
	)
	return &optimizerFixture{svc: svc, events: recorder}
}

func optimizeRequest(from, to time.Time) dto.OptimizePlanningRequest {
	return dto.OptimizePlanningRequest{
		SiteID:    "site-1",
		StaffIDs:  []string{"staff-1", "staff-2"},
		StartDate: models.DateKey(from),
		EndDate:   models.DateKey(to),
	}
}

func planningWithStaff(id string, date time.Time, roomStaff map[string]string) models.DayPlanning {
	planning := models.DayPlanning{
		ID:     id,
		SiteID: "site-1",
		Date:   date,
		Status: models.PlanningStatusDraft,
	}
	for roomID, staffID := range roomStaff {
		planning.Assignments = append(planning.Assignments, models.RoomAssignment{
			ID:            id + "-" + roomID,
			DayPlanningID: id,
			RoomID:        roomID,
			Period:        models.PeriodMorning,
			StaffAssignments: []models.StaffAssignment{{
				ID:               id + "-" + roomID + "-staff",
				RoomAssignmentID: id + "-" + roomID,
				StaffID:          staffID,
				Role:             models.StaffRoleAnesthetist,
			}},
		})
	}
	return planning
}

type ruleSourceStub struct {
	active []models.Rule
}

func (s ruleSourceStub) ListActiveByTypes(ctx context.Context, types []models.RuleType) ([]models.Rule, error) {
	return s.active, nil
}

func (s ruleSourceStub) ListByIDs(ctx context.Context, ids []string) ([]models.Rule, error) {
	var out []models.Rule
	for _, rule := range s.active {
		for _, id := range ids {
			if rule.ID == id {
				out = append(out, rule)
			}
		}
	}
	return out, nil
}

type staffSourceStub struct {
	items []models.StaffMember
}

func (s staffSourceStub) ListByIDs(ctx context.Context, ids []string) ([]models.StaffMember, error) {
	return s.items, nil
}

type detailedPlanningStub struct {
	items []models.DayPlanning
}

func (s detailedPlanningStub) ListDetailed(ctx context.Context, siteID string, from, to time.Time) ([]models.DayPlanning, error) {
	return s.items, nil
}

type evaluatorFunc func(ctx context.Context, assignments []models.Assignment, rules []models.Rule) ([]models.RuleViolation, error)

func (f evaluatorFunc) Evaluate(ctx context.Context, assignments []models.Assignment, rules []models.Rule) ([]models.RuleViolation, error) {
	return f(ctx, assignments, rules)
}

// balanceEvaluator emits one violation of the balance rule for every
// assignment the most-loaded staff member holds beyond the first.
type balanceEvaluator struct{}

func (balanceEvaluator) Evaluate(_ context.Context, assignments []models.Assignment, _ []models.Rule) ([]models.RuleViolation, error) {
	counts := map[string]int{}
	max := 0
	for _, a := range assignments {
		counts[a.StaffID]++
		if counts[a.StaffID] > max {
			max = counts[a.StaffID]
		}
	}
	var violations []models.RuleViolation
	for i := 0; i < max-1; i++ {
		violations = append(violations, models.RuleViolation{
			RuleID:   "rule-balance",
			RuleName: "balance",
			Severity: 2,
			Message:  "workload unbalanced",
		})
	}
	return violations, nil
}
