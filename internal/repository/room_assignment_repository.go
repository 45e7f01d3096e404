package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/blocops/bloc-planning-api/internal/models"
)

// RoomAssignmentRepository persists room assignments. All writes take an
// executor so generation can batch them inside a single transaction.
type RoomAssignmentRepository struct {
	db *sqlx.DB
}

// NewRoomAssignmentRepository creates a new room assignment repository.
func NewRoomAssignmentRepository(db *sqlx.DB) *RoomAssignmentRepository {
	return &RoomAssignmentRepository{db: db}
}

// BulkCreate inserts all room assignments in one multi-row statement.
func (r *RoomAssignmentRepository) BulkCreate(ctx context.Context, exec sqlx.ExtContext, assignments []models.RoomAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	const query = `INSERT INTO room_assignments (id, day_planning_id, room_id, period, surgeon_id, expected_specialty, source_slot_id, created_at)
		VALUES (:id, :day_planning_id, :room_id, :period, :surgeon_id, :expected_specialty, :source_slot_id, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, assignments); err != nil {
		return fmt.Errorf("bulk create room assignments: %w", err)
	}
	return nil
}

// DeleteByPlanningIDs removes all room assignments belonging to the given
// plannings. Staff assignments cascade through the child delete issued by
// the staff assignment repository before this one runs.
func (r *RoomAssignmentRepository) DeleteByPlanningIDs(ctx context.Context, exec sqlx.ExtContext, planningIDs []string) error {
	if len(planningIDs) == 0 {
		return nil
	}
	const query = `DELETE FROM room_assignments WHERE day_planning_id = ANY($1)`
	if _, err := exec.ExecContext(ctx, query, pq.Array(planningIDs)); err != nil {
		return fmt.Errorf("delete room assignments: %w", err)
	}
	return nil
}
