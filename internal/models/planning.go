package models

import "time"

// PlanningStatus represents lifecycle phases for a day planning.
type PlanningStatus string

const (
	PlanningStatusDraft     PlanningStatus = "DRAFT"
	PlanningStatusValidated PlanningStatus = "VALIDATED"
	PlanningStatusLocked    PlanningStatus = "LOCKED"
	PlanningStatusArchived  PlanningStatus = "ARCHIVED"
)

// Regenerable reports whether a generation run may replace this planning.
// Anything that left DRAFT is immutable to the engine.
func (s PlanningStatus) Regenerable() bool {
	return s == PlanningStatusDraft
}

// DayPlanning is the materialized operating-room schedule for one site on one date.
type DayPlanning struct {
	ID        string         `db:"id" json:"id"`
	SiteID    string         `db:"site_id" json:"site_id"`
	Date      time.Time      `db:"date" json:"date"`
	Status    PlanningStatus `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`

	Assignments []RoomAssignment   `db:"-" json:"assignments,omitempty"`
	Conflicts   []PlanningConflict `db:"-" json:"conflicts,omitempty"`
}

// RoomAssignment is one room-period slot within a day planning.
type RoomAssignment struct {
	ID                string    `db:"id" json:"id"`
	DayPlanningID     string    `db:"day_planning_id" json:"day_planning_id"`
	RoomID            string    `db:"room_id" json:"room_id"`
	Period            Period    `db:"period" json:"period"`
	SurgeonID         *string   `db:"surgeon_id" json:"surgeon_id,omitempty"`
	ExpectedSpecialty string    `db:"expected_specialty" json:"expected_specialty"`
	SourceSlotID      *string   `db:"source_slot_id" json:"source_slot_id,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`

	StaffAssignments []StaffAssignment `db:"-" json:"staff_assignments,omitempty"`
}

// StaffRole identifies the function a staff member fills in a room.
type StaffRole string

const (
	StaffRoleAnesthetist      StaffRole = "ANESTHETIST"
	StaffRoleNurseAnesthetist StaffRole = "NURSE_ANESTHETIST"
	StaffRoleScrubNurse       StaffRole = "SCRUB_NURSE"
)

// StaffAssignment places one staff member in a room assignment.
type StaffAssignment struct {
	ID                   string    `db:"id" json:"id"`
	RoomAssignmentID     string    `db:"room_assignment_id" json:"room_assignment_id"`
	StaffID              string    `db:"staff_id" json:"staff_id"`
	Role                 StaffRole `db:"role" json:"role"`
	IsPrimaryAnesthetist bool      `db:"is_primary_anesthetist" json:"is_primary_anesthetist"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
}

// ConflictType classifies structural scheduling conflicts.
type ConflictType string

const (
	ConflictDoubleBooking  ConflictType = "DOUBLE_BOOKING"
	ConflictAbsenceOverlap ConflictType = "ABSENCE_OVERLAP"
)

// ConflictSeverity ranks how blocking a conflict is.
type ConflictSeverity string

const (
	SeverityInfo    ConflictSeverity = "INFO"
	SeverityWarning ConflictSeverity = "WARNING"
	SeverityError   ConflictSeverity = "ERROR"
)

// PlanningConflict records a structural problem detected on a day planning.
// Conflicts are informational: they never block persistence by themselves.
type PlanningConflict struct {
	ID              string           `db:"id" json:"id"`
	DayPlanningID   string           `db:"day_planning_id" json:"day_planning_id"`
	Type            ConflictType     `db:"type" json:"type"`
	Message         string           `db:"message" json:"message"`
	Severity        ConflictSeverity `db:"severity" json:"severity"`
	IsResolved      bool             `db:"is_resolved" json:"is_resolved"`
	IsForceResolved bool             `db:"is_force_resolved" json:"is_force_resolved"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
}

// Assignment is the flattened, in-memory view of one staffed slot that the
// optimizer works over. It is a value object, never persisted directly.
type Assignment struct {
	ID      string    `json:"id"`
	Date    time.Time `json:"date"`
	RoomID  string    `json:"room_id"`
	Period  Period    `json:"period"`
	StaffID string    `json:"staff_id"`
	Role    StaffRole `json:"role"`
}

// DateKey normalizes a timestamp to its calendar-day key.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
