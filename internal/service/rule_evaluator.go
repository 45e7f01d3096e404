package service

import (
	"context"
	"fmt"

	"github.com/blocops/bloc-planning-api/internal/models"
)

// StructuralRuleEvaluator evaluates schedules against built-in predicates
// keyed by rule type. Rule rows select which predicates run and carry the
// identity reported back in violations; the checks themselves live here.
type StructuralRuleEvaluator struct {
	// MaxDaysPerWeek bounds distinct working days per staff per ISO week
	// for PLANNING rules.
	MaxDaysPerWeek int
}

// NewStructuralRuleEvaluator returns the evaluator with default bounds.
func NewStructuralRuleEvaluator() *StructuralRuleEvaluator {
	return &StructuralRuleEvaluator{MaxDaysPerWeek: 5}
}

// Evaluate runs every rule's predicate over the schedule. The error return
// exists for remote evaluators; the structural one cannot fail.
func (e *StructuralRuleEvaluator) Evaluate(_ context.Context, assignments []models.Assignment, rules []models.Rule) ([]models.RuleViolation, error) {
	var violations []models.RuleViolation
	for _, rule := range rules {
		switch rule.Type {
		case models.RuleTypeAllocation, models.RuleTypeSupervision:
			violations = append(violations, e.checkOverlaps(rule, assignments)...)
		case models.RuleTypeConstraint:
			violations = append(violations, e.checkDailyLoad(rule, assignments)...)
		case models.RuleTypePlanning:
			violations = append(violations, e.checkWeeklyDays(rule, assignments)...)
		}
	}
	return violations, nil
}

// checkOverlaps flags staff holding two overlapping periods on the same day.
func (e *StructuralRuleEvaluator) checkOverlaps(rule models.Rule, assignments []models.Assignment) []models.RuleViolation {
	var violations []models.RuleViolation
	type seen struct {
		period models.Period
		roomID string
	}
	byStaffDay := make(map[string][]seen)
	for _, a := range assignments {
		key := a.StaffID + "|" + models.DateKey(a.Date)
		for _, prev := range byStaffDay[key] {
			if prev.roomID != a.RoomID && prev.period.Overlaps(a.Period) {
				violations = append(violations, models.RuleViolation{
					RuleID:   rule.ID,
					RuleName: rule.Name,
					Severity: rule.Priority,
					Message: fmt.Sprintf("staff %s holds overlapping periods in rooms %s and %s on %s",
						a.StaffID, prev.roomID, a.RoomID, models.DateKey(a.Date)),
				})
			}
		}
		byStaffDay[key] = append(byStaffDay[key], seen{period: a.Period, roomID: a.RoomID})
	}
	return violations
}

// checkDailyLoad flags staff holding more than two assignments on one day.
// Morning plus afternoon is a full day; anything beyond is overload.
func (e *StructuralRuleEvaluator) checkDailyLoad(rule models.Rule, assignments []models.Assignment) []models.RuleViolation {
	counts := make(map[string]int)
	flagged := make(map[string]bool)
	var violations []models.RuleViolation
	for _, a := range assignments {
		key := a.StaffID + "|" + models.DateKey(a.Date)
		counts[key]++
		if counts[key] > 2 && !flagged[key] {
			flagged[key] = true
			violations = append(violations, models.RuleViolation{
				RuleID:   rule.ID,
				RuleName: rule.Name,
				Severity: rule.Priority,
				Message:  fmt.Sprintf("staff %s exceeds two assignments on %s", a.StaffID, models.DateKey(a.Date)),
			})
		}
	}
	return violations
}

// checkWeeklyDays flags staff scheduled on more distinct days in one ISO week
// than the configured bound.
func (e *StructuralRuleEvaluator) checkWeeklyDays(rule models.Rule, assignments []models.Assignment) []models.RuleViolation {
	limit := e.MaxDaysPerWeek
	if limit <= 0 {
		limit = 5
	}
	days := make(map[string]map[string]bool)
	for _, a := range assignments {
		year, week := a.Date.ISOWeek()
		key := fmt.Sprintf("%s|%d-%d", a.StaffID, year, week)
		if days[key] == nil {
			days[key] = make(map[string]bool)
		}
		days[key][models.DateKey(a.Date)] = true
	}
	var violations []models.RuleViolation
	for key, set := range days {
		if len(set) > limit {
			violations = append(violations, models.RuleViolation{
				RuleID:   rule.ID,
				RuleName: rule.Name,
				Severity: rule.Priority,
				Message:  fmt.Sprintf("%s works %d days in one week, limit is %d", key, len(set), limit),
			})
		}
	}
	return violations
}
