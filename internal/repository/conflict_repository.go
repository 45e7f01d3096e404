package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/blocops/bloc-planning-api/internal/models"
)

// ConflictRepository persists planning conflicts.
type ConflictRepository struct {
	db *sqlx.DB
}

// NewConflictRepository creates a new conflict repository.
func NewConflictRepository(db *sqlx.DB) *ConflictRepository {
	return &ConflictRepository{db: db}
}

// BulkCreate inserts all conflicts in one multi-row statement.
func (r *ConflictRepository) BulkCreate(ctx context.Context, exec sqlx.ExtContext, conflicts []models.PlanningConflict) error {
	if len(conflicts) == 0 {
		return nil
	}
	const query = `INSERT INTO planning_conflicts (id, day_planning_id, type, message, severity, is_resolved, is_force_resolved, created_at)
		VALUES (:id, :day_planning_id, :type, :message, :severity, :is_resolved, :is_force_resolved, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, conflicts); err != nil {
		return fmt.Errorf("bulk create conflicts: %w", err)
	}
	return nil
}

// DeleteByPlanningIDs removes unresolved conflicts for the given plannings
// so regeneration starts from a clean slate. Force-resolved conflicts are
// kept: a human decision survives regeneration.
func (r *ConflictRepository) DeleteByPlanningIDs(ctx context.Context, exec sqlx.ExtContext, planningIDs []string) error {
	if len(planningIDs) == 0 {
		return nil
	}
	const query = `DELETE FROM planning_conflicts
		WHERE day_planning_id = ANY($1) AND is_force_resolved = FALSE`
	if _, err := exec.ExecContext(ctx, query, pq.Array(planningIDs)); err != nil {
		return fmt.Errorf("delete conflicts: %w", err)
	}
	return nil
}
