package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/blocops/bloc-planning-api/internal/models"
	appErrors "github.com/blocops/bloc-planning-api/pkg/errors"
)

// PlanningRepository persists day plannings and loads them with or without
// their child records.
type PlanningRepository struct {
	db *sqlx.DB
}

// NewPlanningRepository creates a new planning repository.
func NewPlanningRepository(db *sqlx.DB) *PlanningRepository {
	return &PlanningRepository{db: db}
}

// ListBySiteAndRange returns the plannings for a site over an inclusive date
// range, without children. Generation uses this to decide which dates already
// have a planning and in which status.
func (r *PlanningRepository) ListBySiteAndRange(ctx context.Context, siteID string, from, to time.Time) ([]models.DayPlanning, error) {
	const query = `SELECT id, site_id, date, status, created_at, updated_at
		FROM day_plannings
		WHERE site_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC`
	var plannings []models.DayPlanning
	if err := r.db.SelectContext(ctx, &plannings, query, siteID, from, to); err != nil {
		return nil, fmt.Errorf("list plannings: %w", err)
	}
	return plannings, nil
}

// GetByID returns one planning with its room assignments, staff assignments
// and conflicts attached.
func (r *PlanningRepository) GetByID(ctx context.Context, id string) (*models.DayPlanning, error) {
	const query = `SELECT id, site_id, date, status, created_at, updated_at
		FROM day_plannings WHERE id = $1`
	var planning models.DayPlanning
	if err := r.db.GetContext(ctx, &planning, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("get planning: %w", err)
	}
	if err := r.attachChildren(ctx, []*models.DayPlanning{&planning}); err != nil {
		return nil, err
	}
	return &planning, nil
}

// ListDetailed returns plannings for a site and range with all children
// attached. Read endpoints and the optimizer both consume this shape.
func (r *PlanningRepository) ListDetailed(ctx context.Context, siteID string, from, to time.Time) ([]models.DayPlanning, error) {
	plannings, err := r.ListBySiteAndRange(ctx, siteID, from, to)
	if err != nil {
		return nil, err
	}
	if len(plannings) == 0 {
		return plannings, nil
	}
	refs := make([]*models.DayPlanning, len(plannings))
	for i := range plannings {
		refs[i] = &plannings[i]
	}
	if err := r.attachChildren(ctx, refs); err != nil {
		return nil, err
	}
	return plannings, nil
}

func (r *PlanningRepository) attachChildren(ctx context.Context, plannings []*models.DayPlanning) error {
	ids := make([]string, len(plannings))
	byID := make(map[string]*models.DayPlanning, len(plannings))
	for i, p := range plannings {
		ids[i] = p.ID
		byID[p.ID] = p
	}

	const roomQuery = `SELECT id, day_planning_id, room_id, period, surgeon_id, expected_specialty, source_slot_id, created_at
		FROM room_assignments
		WHERE day_planning_id = ANY($1)
		ORDER BY room_id, period`
	var rooms []models.RoomAssignment
	if err := r.db.SelectContext(ctx, &rooms, roomQuery, pq.Array(ids)); err != nil {
		return fmt.Errorf("list room assignments: %w", err)
	}

	roomIDs := make([]string, len(rooms))
	roomByID := make(map[string]*models.RoomAssignment, len(rooms))
	for i := range rooms {
		roomIDs[i] = rooms[i].ID
		roomByID[rooms[i].ID] = &rooms[i]
	}

	if len(rooms) > 0 {
		const staffQuery = `SELECT id, room_assignment_id, staff_id, role, is_primary_anesthetist, created_at
			FROM staff_assignments
			WHERE room_assignment_id = ANY($1)
			ORDER BY role, staff_id`
		var staff []models.StaffAssignment
		if err := r.db.SelectContext(ctx, &staff, staffQuery, pq.Array(roomIDs)); err != nil {
			return fmt.Errorf("list staff assignments: %w", err)
		}
		for _, sa := range staff {
			room := roomByID[sa.RoomAssignmentID]
			room.StaffAssignments = append(room.StaffAssignments, sa)
		}
	}

	const conflictQuery = `SELECT id, day_planning_id, type, message, severity, is_resolved, is_force_resolved, created_at
		FROM planning_conflicts
		WHERE day_planning_id = ANY($1)
		ORDER BY created_at ASC`
	var conflicts []models.PlanningConflict
	if err := r.db.SelectContext(ctx, &conflicts, conflictQuery, pq.Array(ids)); err != nil {
		return fmt.Errorf("list conflicts: %w", err)
	}

	for i := range rooms {
		planning := byID[rooms[i].DayPlanningID]
		planning.Assignments = append(planning.Assignments, rooms[i])
	}
	for _, c := range conflicts {
		planning := byID[c.DayPlanningID]
		planning.Conflicts = append(planning.Conflicts, c)
	}
	return nil
}

// BulkCreate inserts all plannings in one multi-row statement on the given
// executor, so generation can run it inside its transaction.
func (r *PlanningRepository) BulkCreate(ctx context.Context, exec sqlx.ExtContext, plannings []models.DayPlanning) error {
	if len(plannings) == 0 {
		return nil
	}
	const query = `INSERT INTO day_plannings (id, site_id, date, status, created_at, updated_at)
		VALUES (:id, :site_id, :date, :status, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, plannings); err != nil {
		return fmt.Errorf("bulk create plannings: %w", err)
	}
	return nil
}

// TouchRegenerated bumps updated_at on plannings whose children were rebuilt.
func (r *PlanningRepository) TouchRegenerated(ctx context.Context, exec sqlx.ExtContext, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `UPDATE day_plannings SET updated_at = NOW() WHERE id = ANY($1)`
	if _, err := exec.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("touch plannings: %w", err)
	}
	return nil
}
