package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/blocops/bloc-planning-api/internal/models"
)

func strPtr(s string) *string { return &s }

func TestAbsenceIndexStaffAbsent(t *testing.T) {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	idx := NewAbsenceIndex([]models.Absence{
		{StaffID: strPtr("staff-1"), StartDate: start, EndDate: end, Status: models.AbsenceStatusApproved},
	})

	assert.True(t, idx.StaffAbsent("staff-1", start))
	assert.True(t, idx.StaffAbsent("staff-1", end))
	assert.True(t, idx.StaffAbsent("staff-1", start.AddDate(0, 0, 2)))
	assert.False(t, idx.StaffAbsent("staff-1", start.AddDate(0, 0, -1)))
	assert.False(t, idx.StaffAbsent("staff-1", end.AddDate(0, 0, 1)))
	assert.False(t, idx.StaffAbsent("staff-2", start))
}

func TestAbsenceIndexIgnoresUnapproved(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	idx := NewAbsenceIndex([]models.Absence{
		{StaffID: strPtr("staff-1"), StartDate: day, EndDate: day, Status: models.AbsenceStatusPending},
		{SurgeonID: strPtr("surg-1"), StartDate: day, EndDate: day, Status: models.AbsenceStatusRejected},
	})

	assert.False(t, idx.StaffAbsent("staff-1", day))
	assert.False(t, idx.SurgeonAbsent("surg-1", day))
}

func TestAbsenceIndexSurgeonAbsent(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	idx := NewAbsenceIndex([]models.Absence{
		{SurgeonID: strPtr("surg-1"), StartDate: day, EndDate: day, Status: models.AbsenceStatusApproved},
	})

	assert.True(t, idx.SurgeonAbsent("surg-1", day))
	// timestamps within the day still count as covered
	assert.True(t, idx.SurgeonAbsent("surg-1", day.Add(15*time.Hour)))
	assert.False(t, idx.SurgeonAbsent("surg-1", day.AddDate(0, 0, 1)))
}
