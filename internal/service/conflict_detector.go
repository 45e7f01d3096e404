package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/blocops/bloc-planning-api/internal/models"
)

// ConflictDetector inspects one materialized day for structural problems.
type ConflictDetector interface {
	Detect(date time.Time, planningID string, assignments []models.RoomAssignment) []models.PlanningConflict
}

// defaultConflictDetector flags double bookings: the same staff member or
// surgeon placed in two rooms whose periods overlap on the same day.
type defaultConflictDetector struct{}

// NewConflictDetector returns the default detector.
func NewConflictDetector() ConflictDetector {
	return &defaultConflictDetector{}
}

type placement struct {
	roomID string
	period models.Period
}

func (d *defaultConflictDetector) Detect(date time.Time, planningID string, assignments []models.RoomAssignment) []models.PlanningConflict {
	var conflicts []models.PlanningConflict
	now := time.Now().UTC()

	staffPlacements := make(map[string][]placement)
	surgeonPlacements := make(map[string][]placement)

	for _, room := range assignments {
		current := placement{roomID: room.RoomID, period: room.Period}
		if room.SurgeonID != nil {
			for _, prev := range surgeonPlacements[*room.SurgeonID] {
				if prev.roomID != current.roomID && prev.period.Overlaps(current.period) {
					conflicts = append(conflicts, models.PlanningConflict{
						ID:            uuid.NewString(),
						DayPlanningID: planningID,
						Type:          models.ConflictDoubleBooking,
						Severity:      models.SeverityError,
						Message: fmt.Sprintf("surgeon %s is booked in rooms %s and %s on %s",
							*room.SurgeonID, prev.roomID, current.roomID, models.DateKey(date)),
						CreatedAt: now,
					})
				}
			}
			surgeonPlacements[*room.SurgeonID] = append(surgeonPlacements[*room.SurgeonID], current)
		}

		for _, staff := range room.StaffAssignments {
			for _, prev := range staffPlacements[staff.StaffID] {
				if prev.roomID != current.roomID && prev.period.Overlaps(current.period) {
					conflicts = append(conflicts, models.PlanningConflict{
						ID:            uuid.NewString(),
						DayPlanningID: planningID,
						Type:          models.ConflictDoubleBooking,
						Severity:      models.SeverityError,
						Message: fmt.Sprintf("staff %s is booked in rooms %s and %s on %s",
							staff.StaffID, prev.roomID, current.roomID, models.DateKey(date)),
						CreatedAt: now,
					})
				}
			}
			staffPlacements[staff.StaffID] = append(staffPlacements[staff.StaffID], current)
		}
	}

	return conflicts
}
