package service

import (
	"encoding/json"
	"math"

	"github.com/blocops/bloc-planning-api/internal/models"
)

// Scorer turns a candidate schedule into an overall score and its per-signal
// breakdown. Scores live on a 0-100 scale.
type Scorer struct {
	complianceWeight   float64
	equityWeight       float64
	satisfactionWeight float64
}

// NewScorer builds a scorer with the given signal weights. Non-positive
// weights fall back to the default 0.6 / 0.2 / 0.2 split.
func NewScorer(complianceWeight, equityWeight, satisfactionWeight float64) *Scorer {
	if complianceWeight <= 0 && equityWeight <= 0 && satisfactionWeight <= 0 {
		complianceWeight, equityWeight, satisfactionWeight = 0.6, 0.2, 0.2
	}
	return &Scorer{
		complianceWeight:   complianceWeight,
		equityWeight:       equityWeight,
		satisfactionWeight: satisfactionWeight,
	}
}

// Score evaluates a schedule over a staff pool against the violations the
// rule engine reported for it.
func (s *Scorer) Score(assignments []models.Assignment, pool []models.StaffMember, violations []models.RuleViolation, totalRules int) (float64, models.OptimizationMetrics) {
	metrics := models.OptimizationMetrics{
		RuleComplianceScore: complianceScore(violations, totalRules),
		EquityScore:         equityScore(assignments, pool),
		SatisfactionScore:   satisfactionScore(assignments, pool),
	}
	overall := s.complianceWeight*metrics.RuleComplianceScore +
		s.equityWeight*metrics.EquityScore +
		s.satisfactionWeight*metrics.SatisfactionScore
	return overall, metrics
}

// complianceScore counts distinct violated rules against the loaded rule set.
// An empty rule set is fully compliant.
func complianceScore(violations []models.RuleViolation, totalRules int) float64 {
	if totalRules == 0 {
		return 100
	}
	violated := make(map[string]struct{}, len(violations))
	for _, v := range violations {
		violated[v.RuleID] = struct{}{}
	}
	return math.Max(0, (1-float64(len(violated))/float64(totalRules))*100)
}

// equityScore measures how evenly assignments spread across the staff pool.
// Pools with fewer than two members are trivially equitable.
func equityScore(assignments []models.Assignment, pool []models.StaffMember) float64 {
	if len(pool) < 2 {
		return 100
	}
	counts := make(map[string]int, len(pool))
	for _, member := range pool {
		counts[member.ID] = 0
	}
	for _, a := range assignments {
		if _, ok := counts[a.StaffID]; ok {
			counts[a.StaffID]++
		}
	}
	min, max := math.MaxInt, 0
	for _, c := range counts {
		if c < min {
			min = c
		}
		if c > max {
			max = c
		}
	}
	if max == 0 {
		return 100
	}
	return math.Max(0, (1-float64(max-min)/float64(max))*100)
}

// satisfactionScore measures how often staff land on their preferred days.
// Members without preferences, or without assignments, are fully satisfied.
func satisfactionScore(assignments []models.Assignment, pool []models.StaffMember) float64 {
	byStaff := make(map[string][]models.Assignment)
	for _, a := range assignments {
		byStaff[a.StaffID] = append(byStaff[a.StaffID], a)
	}
	if len(byStaff) == 0 {
		return 100
	}

	var total float64
	var scored int
	for _, member := range pool {
		own := byStaff[member.ID]
		if len(own) == 0 {
			continue
		}
		scored++
		preferred := preferredDaySet(member)
		if len(preferred) == 0 {
			total += 100
			continue
		}
		matched := 0
		for _, a := range own {
			if preferred[models.DateKey(a.Date)] {
				matched++
			}
		}
		total += float64(matched) / float64(len(own)) * 100
	}
	if scored == 0 {
		return 100
	}
	return total / float64(scored)
}

func preferredDaySet(member models.StaffMember) map[string]bool {
	if len(member.Preferences) == 0 {
		return nil
	}
	var prefs models.StaffPreferences
	if err := json.Unmarshal(member.Preferences, &prefs); err != nil {
		return nil
	}
	if len(prefs.PreferredDays) == 0 {
		return nil
	}
	set := make(map[string]bool, len(prefs.PreferredDays))
	for _, day := range prefs.PreferredDays {
		set[day] = true
	}
	return set
}
