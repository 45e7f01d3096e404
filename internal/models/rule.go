package models

import "time"

// RuleType narrows which externally defined rules the engine consumes.
type RuleType string

const (
	RuleTypePlanning    RuleType = "PLANNING"
	RuleTypeAllocation  RuleType = "ALLOCATION"
	RuleTypeConstraint  RuleType = "CONSTRAINT"
	RuleTypeSupervision RuleType = "SUPERVISION"
)

// EngineRuleTypes lists the rule types relevant to schedule optimization.
var EngineRuleTypes = []RuleType{
	RuleTypePlanning,
	RuleTypeAllocation,
	RuleTypeConstraint,
	RuleTypeSupervision,
}

// Rule is an opaque, externally defined predicate. The engine never inspects
// rule semantics; evaluation happens through the injected rule evaluator.
type Rule struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Type      RuleType  `db:"type" json:"type"`
	Priority  int       `db:"priority" json:"priority"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RuleViolation describes one rule a candidate schedule fails.
type RuleViolation struct {
	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Severity int    `json:"severity"`
	Message  string `json:"message"`
}

// OptimizationMetrics is the per-signal breakdown behind an overall score.
type OptimizationMetrics struct {
	EquityScore         float64 `json:"equity_score"`
	SatisfactionScore   float64 `json:"satisfaction_score"`
	RuleComplianceScore float64 `json:"rule_compliance_score"`
}

// OptimizationResult is the immutable outcome of evaluating one candidate
// schedule. A fresh value is produced on every evaluation, never mutated.
type OptimizationResult struct {
	Score         float64             `json:"score"`
	Assignments   []Assignment        `json:"assignments"`
	ViolatedRules []RuleViolation     `json:"violated_rules"`
	Metrics       OptimizationMetrics `json:"metrics"`
	Iterations    int                 `json:"iterations"`
}
