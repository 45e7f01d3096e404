package dto

import "github.com/blocops/bloc-planning-api/internal/models"

// GeneratePlanningRequest instructs the engine to expand weekly templates
// into concrete day plannings over an inclusive date range.
type GeneratePlanningRequest struct {
	SiteID      string   `json:"siteId" validate:"required"`
	StartDate   string   `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string   `json:"endDate" validate:"required,datetime=2006-01-02"`
	TemplateIDs []string `json:"templateIds" validate:"omitempty,dive,required"`
	InitiatorID string   `json:"initiatorId" validate:"required"`
}

// GenerationSummary reports what a generation run produced.
type GenerationSummary struct {
	PlanningsCreated        int      `json:"planningsCreated"`
	PlanningsRegenerated    int      `json:"planningsRegenerated"`
	PlanningsSkipped        int      `json:"planningsSkipped"`
	RoomAssignmentsCreated  int      `json:"roomAssignmentsCreated"`
	StaffAssignmentsCreated int      `json:"staffAssignmentsCreated"`
	ConflictsRecorded       int      `json:"conflictsRecorded"`
	Warnings                []string `json:"warnings,omitempty"`
}

// GeneratePlanningResponse returns the persisted plannings and a run summary.
type GeneratePlanningResponse struct {
	Plannings []models.DayPlanning `json:"plannings"`
	Summary   GenerationSummary    `json:"summary"`
}

// OptimizePlanningRequest asks the optimizer to improve the schedule covering
// the date range using the given staff pool. RuleIDs is optional; when empty
// the engine loads active rules of the relevant types from its rule source.
type OptimizePlanningRequest struct {
	SiteID    string   `json:"siteId" validate:"required"`
	StaffIDs  []string `json:"staffIds" validate:"required,min=1,dive,required"`
	StartDate string   `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string   `json:"endDate" validate:"required,datetime=2006-01-02"`
	RuleIDs   []string `json:"ruleIds" validate:"omitempty,dive,required"`
}

// PlanningRangeQuery filters planning reads by site and date range.
type PlanningRangeQuery struct {
	SiteID string `form:"siteId" json:"siteId"`
	From   string `form:"from" json:"from"`
	To     string `form:"to" json:"to"`
}
