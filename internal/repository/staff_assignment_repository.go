package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/blocops/bloc-planning-api/internal/models"
)

// StaffAssignmentRepository persists staff assignments.
type StaffAssignmentRepository struct {
	db *sqlx.DB
}

// NewStaffAssignmentRepository creates a new staff assignment repository.
func NewStaffAssignmentRepository(db *sqlx.DB) *StaffAssignmentRepository {
	return &StaffAssignmentRepository{db: db}
}

// BulkCreate inserts all staff assignments in one multi-row statement.
func (r *StaffAssignmentRepository) BulkCreate(ctx context.Context, exec sqlx.ExtContext, assignments []models.StaffAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	const query = `INSERT INTO staff_assignments (id, room_assignment_id, staff_id, role, is_primary_anesthetist, created_at)
		VALUES (:id, :room_assignment_id, :staff_id, :role, :is_primary_anesthetist, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, assignments); err != nil {
		return fmt.Errorf("bulk create staff assignments: %w", err)
	}
	return nil
}

// DeleteByPlanningIDs removes all staff assignments hanging off the given
// plannings' room assignments. Must run before the room assignment delete.
func (r *StaffAssignmentRepository) DeleteByPlanningIDs(ctx context.Context, exec sqlx.ExtContext, planningIDs []string) error {
	if len(planningIDs) == 0 {
		return nil
	}
	const query = `DELETE FROM staff_assignments
		WHERE room_assignment_id IN (
			SELECT id FROM room_assignments WHERE day_planning_id = ANY($1)
		)`
	if _, err := exec.ExecContext(ctx, query, pq.Array(planningIDs)); err != nil {
		return fmt.Errorf("delete staff assignments: %w", err)
	}
	return nil
}
