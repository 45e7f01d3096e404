package models

import "time"

// AbsenceStatus tracks the approval workflow of an absence request.
// Only approved absences participate in conflict filtering.
type AbsenceStatus string

const (
	AbsenceStatusPending  AbsenceStatus = "PENDING"
	AbsenceStatusApproved AbsenceStatus = "APPROVED"
	AbsenceStatusRejected AbsenceStatus = "REJECTED"
)

// Absence marks a staff member or a surgeon (exactly one of the two)
// unavailable over an inclusive date range.
type Absence struct {
	ID        string        `db:"id" json:"id"`
	StaffID   *string       `db:"staff_id" json:"staff_id,omitempty"`
	SurgeonID *string       `db:"surgeon_id" json:"surgeon_id,omitempty"`
	StartDate time.Time     `db:"start_date" json:"start_date"`
	EndDate   time.Time     `db:"end_date" json:"end_date"`
	Status    AbsenceStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// Covers reports whether the absence spans the given date (inclusive bounds).
func (a Absence) Covers(date time.Time) bool {
	day := date.UTC().Truncate(24 * time.Hour)
	start := a.StartDate.UTC().Truncate(24 * time.Hour)
	end := a.EndDate.UTC().Truncate(24 * time.Hour)
	return !day.Before(start) && !day.After(end)
}
