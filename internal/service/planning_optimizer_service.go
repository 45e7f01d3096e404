package service

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/blocops/bloc-planning-api/internal/dto"
	"github.com/blocops/bloc-planning-api/internal/models"
	appErrors "github.com/blocops/bloc-planning-api/pkg/errors"
	"github.com/blocops/bloc-planning-api/pkg/events"
)

// RuleEvaluator scores a candidate schedule against externally defined rules.
// Implementations are expected to be pure: same schedule, same verdict.
type RuleEvaluator interface {
	Evaluate(ctx context.Context, assignments []models.Assignment, rules []models.Rule) ([]models.RuleViolation, error)
}

// AvailabilityChecker answers whether a staff member can work a given date.
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, staffID string, date time.Time) (bool, error)
}

// ProblemLocator picks the assignments most worth replacing in a scored
// schedule. Swapping the implementation changes the optimizer's search
// strategy without touching the loop.
type ProblemLocator interface {
	Locate(result models.OptimizationResult) []models.Assignment
}

type ruleSource interface {
	ListActiveByTypes(ctx context.Context, types []models.RuleType) ([]models.Rule, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Rule, error)
}

type staffSource interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.StaffMember, error)
}

type detailedPlanningSource interface {
	ListDetailed(ctx context.Context, siteID string, from, to time.Time) ([]models.DayPlanning, error)
}

// PlanningOptimizerService improves a persisted draft schedule through
// bounded local search: evaluate, locate a problem, substitute or remove,
// keep the candidate only when it scores better.
type PlanningOptimizerService struct {
	rules        ruleSource
	staff        staffSource
	plannings    detailedPlanningSource
	absences     absenceSource
	evaluator    RuleEvaluator
	locator      ProblemLocator
	scorer       *Scorer
	events       eventPublisher
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	maxAttempts  int
	availability AvailabilityChecker
}

// OptimizerOptions tunes the search loop.
type OptimizerOptions struct {
	MaxAttempts int
}

// NewPlanningOptimizerService wires optimizer dependencies.
func NewPlanningOptimizerService(
	rules ruleSource,
	staff staffSource,
	plannings detailedPlanningSource,
	absences absenceSource,
	evaluator RuleEvaluator,
	locator ProblemLocator,
	scorer *Scorer,
	bus eventPublisher,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	opts OptimizerOptions,
) *PlanningOptimizerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locator == nil {
		locator = &busiestStaffLocator{}
	}
	if scorer == nil {
		scorer = NewScorer(0, 0, 0)
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 10
	}
	return &PlanningOptimizerService{
		rules:       rules,
		staff:       staff,
		plannings:   plannings,
		absences:    absences,
		evaluator:   evaluator,
		locator:     locator,
		scorer:      scorer,
		events:      bus,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		maxAttempts: opts.MaxAttempts,
	}
}

// Optimize runs the bounded improvement loop over the persisted schedule
// covering the request's range. The returned result always reflects the best
// candidate seen, which may be the untouched original.
func (s *PlanningOptimizerService) Optimize(ctx context.Context, req dto.OptimizePlanningRequest) (*models.OptimizationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid optimization payload")
	}
	from, to, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	rules, err := s.loadRules(ctx, req.RuleIDs)
	if err != nil {
		return nil, err
	}

	pool, err := s.staff.ListByIDs(ctx, req.StaffIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff pool")
	}
	if len(pool) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "none of the requested staff exist")
	}

	initial, err := s.loadSchedule(ctx, req.SiteID, from, to)
	if err != nil {
		return nil, err
	}
	if len(initial) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no plannings to optimize in this range")
	}

	checker := s.availability
	if checker == nil {
		poolIDs := make([]string, len(pool))
		for i, member := range pool {
			poolIDs[i] = member.ID
		}
		absences, err := s.absences.ListApprovedInRange(ctx, poolIDs, nil, from, to)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absences")
		}
		checker = indexAvailability{index: NewAbsenceIndex(absences)}
	}

	result, err := s.search(ctx, initial, pool, rules, checker)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordOptimization(result.Iterations, result.Score)
	if s.events != nil {
		s.events.Publish(events.PlanningGeneratedDetailed, map[string]interface{}{
			"site_id":        req.SiteID,
			"score":          result.Score,
			"iterations":     result.Iterations,
			"violated_rules": len(result.ViolatedRules),
		})
	}
	s.logger.Info("optimization completed",
		zap.String("site_id", req.SiteID),
		zap.Float64("score", result.Score),
		zap.Int("iterations", result.Iterations),
		zap.Int("violations", len(result.ViolatedRules)))
	return result, nil
}

func (s *PlanningOptimizerService) loadRules(ctx context.Context, ruleIDs []string) ([]models.Rule, error) {
	var rules []models.Rule
	var err error
	if len(ruleIDs) > 0 {
		rules, err = s.rules.ListByIDs(ctx, ruleIDs)
		if err == nil && len(rules) == 0 {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "none of the requested rules exist")
		}
	} else {
		rules, err = s.rules.ListActiveByTypes(ctx, models.EngineRuleTypes)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rules")
	}
	if s.events != nil {
		s.events.Publish(events.RulesLoaded, map[string]interface{}{"count": len(rules)})
	}
	return rules, nil
}

// loadSchedule flattens persisted plannings into the optimizer's working
// representation. One staff assignment becomes one schedule entry.
func (s *PlanningOptimizerService) loadSchedule(ctx context.Context, siteID string, from, to time.Time) ([]models.Assignment, error) {
	plannings, err := s.plannings.ListDetailed(ctx, siteID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load plannings")
	}
	var schedule []models.Assignment
	for _, planning := range plannings {
		for _, room := range planning.Assignments {
			for _, staff := range room.StaffAssignments {
				schedule = append(schedule, models.Assignment{
					ID:      staff.ID,
					Date:    planning.Date,
					RoomID:  room.RoomID,
					Period:  room.Period,
					StaffID: staff.StaffID,
					Role:    staff.Role,
				})
			}
		}
	}
	return schedule, nil
}

func (s *PlanningOptimizerService) evaluate(ctx context.Context, schedule []models.Assignment, pool []models.StaffMember, rules []models.Rule) (models.OptimizationResult, error) {
	violations, err := s.evaluator.Evaluate(ctx, schedule, rules)
	if err != nil {
		return models.OptimizationResult{}, appErrors.Wrap(err, appErrors.ErrRuleEngine.Code, appErrors.ErrRuleEngine.Status, "rule evaluation failed")
	}
	s.metrics.RecordRuleEvaluation()
	score, metrics := s.scorer.Score(schedule, pool, violations, len(rules))
	return models.OptimizationResult{
		Score:         score,
		Assignments:   schedule,
		ViolatedRules: violations,
		Metrics:       metrics,
	}, nil
}

func (s *PlanningOptimizerService) search(ctx context.Context, initial []models.Assignment, pool []models.StaffMember, rules []models.Rule, checker AvailabilityChecker) (*models.OptimizationResult, error) {
	current := initial
	best, err := s.evaluate(ctx, current, pool, rules)
	if err != nil {
		return nil, err
	}

	iterations := 0
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		problems := s.locator.Locate(best)
		if len(problems) == 0 {
			break
		}
		iterations++

		candidate, err := s.improve(ctx, current, problems, pool, rules, checker)
		if err != nil {
			return nil, err
		}

		candidateResult, err := s.evaluate(ctx, candidate, pool, rules)
		if err != nil {
			return nil, err
		}

		if !accepts(best, candidateResult) {
			break
		}
		current = candidate
		best = candidateResult
	}

	best.Iterations = iterations
	return &best, nil
}

// accepts keeps a candidate only when it strictly improves the score, or
// matches it while strictly reducing the violation count.
func accepts(best, candidate models.OptimizationResult) bool {
	if candidate.Score > best.Score {
		return true
	}
	return candidate.Score == best.Score && len(candidate.ViolatedRules) < len(best.ViolatedRules)
}

// improve rewrites the problem assignments: each one is either handed to the
// best-scoring available substitute or dropped when no substitute beats the
// bare removal.
func (s *PlanningOptimizerService) improve(ctx context.Context, schedule []models.Assignment, problems []models.Assignment, pool []models.StaffMember, rules []models.Rule, checker AvailabilityChecker) ([]models.Assignment, error) {
	candidate := cloneSchedule(schedule)

	for _, problem := range problems {
		idx := indexOfAssignment(candidate, problem.ID)
		if idx < 0 {
			continue
		}

		removal := append(cloneSchedule(candidate[:idx]), candidate[idx+1:]...)
		removalResult, err := s.evaluate(ctx, removal, pool, rules)
		if err != nil {
			return nil, err
		}

		bestSchedule := removal
		bestScore := removalResult.Score

		for _, member := range pool {
			if member.ID == problem.StaffID || member.Role != problem.Role || !member.IsActive {
				continue
			}
			available, err := checker.IsAvailable(ctx, member.ID, problem.Date)
			if err != nil {
				s.logger.Warn("availability lookup failed, skipping candidate",
					zap.String("staff_id", member.ID), zap.Error(err))
				continue
			}
			if !available || bookedAt(candidate, member.ID, problem.Date, problem.Period, problem.ID) {
				continue
			}

			substitution := cloneSchedule(candidate)
			substitution[idx].StaffID = member.ID
			substitutionResult, err := s.evaluate(ctx, substitution, pool, rules)
			if err != nil {
				return nil, err
			}
			if substitutionResult.Score > bestScore {
				bestSchedule = substitution
				bestScore = substitutionResult.Score
			}
		}

		candidate = bestSchedule
	}
	return candidate, nil
}

func cloneSchedule(schedule []models.Assignment) []models.Assignment {
	out := make([]models.Assignment, len(schedule))
	copy(out, schedule)
	return out
}

func indexOfAssignment(schedule []models.Assignment, id string) int {
	for i, a := range schedule {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// bookedAt reports whether the staff member already works an overlapping
// period on the date, ignoring the assignment being replaced.
func bookedAt(schedule []models.Assignment, staffID string, date time.Time, period models.Period, excludeID string) bool {
	key := models.DateKey(date)
	for _, a := range schedule {
		if a.ID == excludeID || a.StaffID != staffID {
			continue
		}
		if models.DateKey(a.Date) == key && a.Period.Overlaps(period) {
			return true
		}
	}
	return false
}

// indexAvailability adapts an AbsenceIndex to the AvailabilityChecker contract.
type indexAvailability struct {
	index *AbsenceIndex
}

func (c indexAvailability) IsAvailable(_ context.Context, staffID string, date time.Time) (bool, error) {
	return !c.index.StaffAbsent(staffID, date), nil
}

// busiestStaffLocator targets the first assignment of the most-loaded staff
// member whenever violations remain. A crude heuristic, but load imbalance is
// behind most equity and supervision violations in practice.
type busiestStaffLocator struct{}

func (busiestStaffLocator) Locate(result models.OptimizationResult) []models.Assignment {
	if len(result.ViolatedRules) == 0 || len(result.Assignments) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, a := range result.Assignments {
		counts[a.StaffID]++
	}
	busiest := ""
	for staffID, count := range counts {
		if busiest == "" || count > counts[busiest] || (count == counts[busiest] && staffID < busiest) {
			busiest = staffID
		}
	}

	var own []models.Assignment
	for _, a := range result.Assignments {
		if a.StaffID == busiest {
			own = append(own, a)
		}
	}
	sort.Slice(own, func(i, j int) bool { return own[i].Date.Before(own[j].Date) })
	return own[:1]
}
