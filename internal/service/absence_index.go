package service

import (
	"time"

	"github.com/blocops/bloc-planning-api/internal/models"
)

// AbsenceIndex answers point-in-time availability questions from a single
// bulk absence load, so generation and optimization never query per person.
type AbsenceIndex struct {
	byStaff   map[string][]models.Absence
	bySurgeon map[string][]models.Absence
}

// NewAbsenceIndex groups approved absences by staff and surgeon id.
func NewAbsenceIndex(absences []models.Absence) *AbsenceIndex {
	idx := &AbsenceIndex{
		byStaff:   make(map[string][]models.Absence),
		bySurgeon: make(map[string][]models.Absence),
	}
	for _, a := range absences {
		if a.Status != models.AbsenceStatusApproved {
			continue
		}
		if a.StaffID != nil {
			idx.byStaff[*a.StaffID] = append(idx.byStaff[*a.StaffID], a)
		}
		if a.SurgeonID != nil {
			idx.bySurgeon[*a.SurgeonID] = append(idx.bySurgeon[*a.SurgeonID], a)
		}
	}
	return idx
}

// StaffAbsent reports whether the staff member has an approved absence
// covering the date.
func (i *AbsenceIndex) StaffAbsent(staffID string, date time.Time) bool {
	for _, a := range i.byStaff[staffID] {
		if a.Covers(date) {
			return true
		}
	}
	return false
}

// SurgeonAbsent reports whether the surgeon has an approved absence covering
// the date.
func (i *AbsenceIndex) SurgeonAbsent(surgeonID string, date time.Time) bool {
	for _, a := range i.bySurgeon[surgeonID] {
		if a.Covers(date) {
			return true
		}
	}
	return false
}
