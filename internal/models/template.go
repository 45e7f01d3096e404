package models

import "time"

// SlotActivity classifies what a template slot schedules.
type SlotActivity string

const (
	ActivityOperatingRoom SlotActivity = "OPERATING_ROOM"
	ActivityConsultation  SlotActivity = "CONSULTATION"
	ActivityOnCall        SlotActivity = "ON_CALL"
)

// PlanningTemplate is a named, reusable weekly pattern of room assignments.
type PlanningTemplate struct {
	ID            string     `db:"id" json:"id"`
	SiteID        string     `db:"site_id" json:"site_id"`
	Name          string     `db:"name" json:"name"`
	Priority      int        `db:"priority" json:"priority"`
	IsActive      bool       `db:"is_active" json:"is_active"`
	EffectiveFrom time.Time  `db:"effective_from" json:"effective_from"`
	EffectiveTo   *time.Time `db:"effective_to" json:"effective_to,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`

	Slots []TemplateSlot `db:"-" json:"slots,omitempty"`
}

// CoversDate reports whether the template's validity window includes the date.
func (t PlanningTemplate) CoversDate(date time.Time) bool {
	if date.Before(t.EffectiveFrom) {
		return false
	}
	if t.EffectiveTo != nil && date.After(*t.EffectiveTo) {
		return false
	}
	return true
}

// TemplateSlot is one recurring entry of a weekly template: which room is
// staffed, by whom, at which period on which day of week and week parity.
type TemplateSlot struct {
	ID                string       `db:"id" json:"id"`
	TemplateID        string       `db:"template_id" json:"template_id"`
	DayOfWeek         int          `db:"day_of_week" json:"day_of_week"` // ISO: Monday=1 .. Sunday=7
	WeekParity        WeekParity   `db:"week_parity" json:"week_parity"`
	Period            Period       `db:"period" json:"period"`
	Activity          SlotActivity `db:"activity" json:"activity"`
	RoomID            *string      `db:"room_id" json:"room_id,omitempty"`
	SurgeonID         *string      `db:"surgeon_id" json:"surgeon_id,omitempty"`
	StaffID           *string      `db:"staff_id" json:"staff_id,omitempty"`
	StaffRole         StaffRole    `db:"staff_role" json:"staff_role,omitempty"`
	ExpectedSpecialty string       `db:"expected_specialty" json:"expected_specialty"`
	IsActive          bool         `db:"is_active" json:"is_active"`
}

// MatchesDate reports whether the slot recurs on the given calendar date.
func (s TemplateSlot) MatchesDate(date time.Time) bool {
	iso := int(date.Weekday())
	if iso == 0 {
		iso = 7
	}
	if s.DayOfWeek != iso {
		return false
	}
	_, week := date.ISOWeek()
	return s.WeekParity.Matches(week)
}
